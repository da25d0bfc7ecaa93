package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"HandSync/internal/model"
)

// 输出文件名
const (
	FileReportJSON   = "report.json"
	FileWorkbook     = "report.xlsx"
	FileLeaderboard  = "leaderboard.png"
	FileSessionTrend = "sessions.png"
	FileCategories   = "hand_categories.png"
	FileActions      = "actions.png"
	FilePots         = "pots.png"
)

// 趋势图最多画的身份数
const maxTrendLines = 8

// WriteAll 把一份报表的 JSON、XLSX 和全部图表写到 dir，返回写出的文件路径
func WriteAll(dir string, rep *model.Report, opts ChartOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	var include []string
	for i, e := range rep.Leaderboard {
		if i == maxTrendLines {
			break
		}
		include = append(include, e.Key)
	}

	outputs := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{FileReportJSON, func() ([]byte, error) { return json.MarshalIndent(rep, "", "  ") }},
		{FileWorkbook, func() ([]byte, error) { return Workbook(rep) }},
		{FileLeaderboard, func() ([]byte, error) { return LeaderboardChart(rep.Leaderboard, opts) }},
		{FileSessionTrend, func() ([]byte, error) {
			if len(include) == 0 {
				return placeholder("No player meets the session threshold", opts)
			}
			return SessionTrendChart(rep.Sessions, include, opts)
		}},
		{FileCategories, func() ([]byte, error) { return DistributionChart("Winning hands", rep.WinningHands.Categories, opts) }},
		{FileActions, func() ([]byte, error) { return DistributionChart("Actions", rep.Actions, opts) }},
		{FilePots, func() ([]byte, error) { return PotChart(rep.Pots, opts) }},
	}

	written := make([]string, 0, len(outputs))
	for _, o := range outputs {
		data, err := o.render()
		if err != nil {
			return written, fmt.Errorf("生成 %s 失败: %w", o.name, err)
		}
		path := filepath.Join(dir, o.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("写入 %s 失败: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
