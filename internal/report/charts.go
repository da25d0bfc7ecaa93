package report

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"HandSync/internal/model"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartOptions 图表尺寸
type ChartOptions struct {
	Width  int
	Height int
}

func (o ChartOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 512
	}
	return w, h
}

var (
	positiveColor = drawing.ColorFromHex("2e7d32")
	negativeColor = drawing.ColorFromHex("c62828")
	neutralColor  = drawing.ColorFromHex("1565c0")
)

// LeaderboardChart 各身份净盈亏柱状图，顺序与排行榜一致
func LeaderboardChart(entries []model.LeaderboardEntry, opts ChartOptions) ([]byte, error) {
	if len(entries) == 0 {
		return placeholder("No leaderboard data", opts)
	}
	w, h := opts.size()
	bars := make([]chart.Value, 0, len(entries))
	for _, e := range entries {
		color := positiveColor
		if e.NetProfit < 0 {
			color = negativeColor
		}
		bars = append(bars, chart.Value{
			Label: e.Name,
			Value: float64(e.NetProfit),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:        "Net profit",
		Width:        w,
		Height:       h,
		BarWidth:     barWidth(w, len(bars)),
		UseBaseValue: true,
		BaseValue:    0,
		Background:   chart.Style{Padding: chart.Box{Top: 40}},
		YAxis:        chart.YAxis{Range: paddedRange(valuesOf(bars))},
		Bars:         bars,
	}
	return renderPNG(graph.Render)
}

// SessionTrendChart 每个身份的累计盈亏曲线；每场牌局的第一手画点作为分界标记。
// include 为空时画全部身份
func SessionTrendChart(series model.SessionSeries, include []string, opts ChartOptions) ([]byte, error) {
	keep := make(map[string]bool, len(include))
	for _, k := range include {
		keep[k] = true
	}

	var (
		lines []chart.Series
		ys    []float64
		maxX  float64
	)
	for _, ps := range series.Series {
		if len(include) > 0 && !keep[ps.Key] {
			continue
		}
		// 从 0 开始，保证每条线至少两个点
		xs := []float64{float64(ps.Points[0].Index) - 1}
		vals := []float64{0}
		starts := []bool{false}
		for _, p := range ps.Points {
			xs = append(xs, float64(p.Index))
			vals = append(vals, float64(p.Cumulative))
			starts = append(starts, p.SessionStart)
			maxX = math.Max(maxX, float64(p.Index))
		}
		ys = append(ys, vals...)
		color := chart.GetDefaultColor(len(lines))
		lines = append(lines, chart.ContinuousSeries{
			Name:    ps.Name,
			XValues: xs,
			YValues: vals,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidthProvider: func(_, _ chart.Range, index int, _, _ float64) float64 {
					if starts[index] {
						return 4
					}
					return 0
				},
			},
		})
	}
	if len(lines) == 0 {
		return placeholder("No session data", opts)
	}

	w, h := opts.size()
	graph := chart.Chart{
		Title:  "Cumulative profit",
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Hand",
			Range: &chart.ContinuousRange{Min: -1, Max: math.Max(maxX, 0) + 1},
		},
		YAxis:  chart.YAxis{Name: "Chips", Range: paddedRange(ys)},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	return renderPNG(graph.Render)
}

// DistributionChart 计数分布柱状图（牌型、动作等），计数为 0 的标签不画
func DistributionChart(title string, rows []model.CountRow, opts ChartOptions) ([]byte, error) {
	bars := make([]chart.Value, 0, len(rows))
	for _, r := range rows {
		if r.Count == 0 {
			continue
		}
		bars = append(bars, chart.Value{
			Label: r.Label,
			Value: float64(r.Count),
			Style: chart.Style{FillColor: neutralColor, StrokeColor: neutralColor},
		})
	}
	if len(bars) == 0 {
		return placeholder("No data", opts)
	}
	w, h := opts.size()
	graph := chart.BarChart{
		Title:      title,
		Width:      w,
		Height:     h,
		BarWidth:   barWidth(w, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis:      chart.YAxis{Range: paddedRange(append(valuesOf(bars), 0))},
		Bars:       bars,
	}
	return renderPNG(graph.Render)
}

// PotChart 按时间顺序的底池大小
func PotChart(pots []model.PotRow, opts ChartOptions) ([]byte, error) {
	if len(pots) < 2 {
		return placeholder("Not enough pot data", opts)
	}
	xs := make([]float64, len(pots))
	ys := make([]float64, len(pots))
	for i, p := range pots {
		xs[i] = float64(i + 1)
		ys[i] = float64(p.Pot)
	}
	w, h := opts.size()
	graph := chart.Chart{
		Title:  "Pot size",
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: "Hand"},
		YAxis: chart.YAxis{Name: "Chips", Range: paddedRange(append(ys, 0))},
		Series: []chart.Series{chart.ContinuousSeries{
			Name:    "pot",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: neutralColor, StrokeWidth: 1.5},
		}},
	}
	return renderPNG(graph.Render)
}

func renderPNG(render func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("渲染图表失败: %w", err)
	}
	return buf.Bytes(), nil
}

// placeholder 无数据时输出的提示图；Chart 至少需要一条可见序列，这里放一条透明的
func placeholder(msg string, opts ChartOptions) ([]byte, error) {
	w, h := opts.size()
	unit := &chart.ContinuousRange{Min: 0, Max: 1}
	graph := chart.Chart{
		Width:  w / 2,
		Height: h / 2,
		XAxis:  chart.XAxis{Style: chart.Style{Hidden: true}, Range: unit},
		YAxis:  chart.YAxis{Style: chart.Style{Hidden: true}, Range: unit},
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
		}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(drawing.ColorBlack)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	return renderPNG(graph.Render)
}

func valuesOf(bars []chart.Value) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Value
	}
	return out
}

// paddedRange 上下各留 10%，所有值相同时也保证范围非零
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 1
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func barWidth(width, n int) int {
	bw := (width - 100) / (n*2 + 1)
	switch {
	case bw < 8:
		return 8
	case bw > 80:
		return 80
	}
	return bw
}
