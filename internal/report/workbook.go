package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"HandSync/internal/model"

	"github.com/xuri/excelize/v2"
)

// 工作簿各表名
const (
	SheetSummary     = "Summary"
	SheetLeaderboard = "Leaderboard"
	SheetSessions    = "Sessions"
	SheetHands       = "Hands"
	SheetActions     = "Actions"
	SheetPots        = "Pots"
)

type sheetData struct {
	name   string
	header []any
	rows   [][]any
	widths []float64
}

// Workbook 把报表写成 xlsx，每类聚合一张表，首行表头并冻结
func Workbook(rep *model.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("创建表头样式失败: %w", err)
	}

	sheets := []sheetData{
		summarySheet(rep),
		leaderboardSheet(rep.Leaderboard),
		sessionsSheet(rep.Sessions.Sessions),
		handsSheet(rep.WinningHands),
		countSheet(SheetActions, "action", rep.Actions),
		potsSheet(rep.Pots),
	}
	for i, sd := range sheets {
		if i == 0 {
			// 默认表改名
			if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sd.name); err != nil {
				return nil, fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(sd.name); err != nil {
			return nil, fmt.Errorf("创建工作表 %s 失败: %w", sd.name, err)
		}
		if err := writeSheet(f, sd, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("写出工作簿失败: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sd sheetData, headerStyle int) error {
	all := append([][]any{sd.header}, sd.rows...)
	for idx, row := range all {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		cells := row
		if err := f.SetSheetRow(sd.name, axis, &cells); err != nil {
			return fmt.Errorf("写入 %s 第 %d 行失败: %w", sd.name, idx+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(sd.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sd.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("设置 %s 表头样式失败: %w", sd.name, err)
	}
	for i, w := range sd.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sd.name, col, col, w); err != nil {
			return fmt.Errorf("设置 %s 列宽失败: %w", sd.name, err)
		}
	}
	return f.SetPanes(sd.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func summarySheet(rep *model.Report) sheetData {
	s := rep.Summary
	return sheetData{
		name:   SheetSummary,
		header: []any{"metric", "value"},
		rows: [][]any{
			{"generated_at", formatTime(&rep.GeneratedAt)},
			{"min_sessions", rep.MinSessions},
			{"games", s.Games},
			{"hands", s.Hands},
			{"raw_players", s.RawPlayers},
			{"canonical_players", s.CanonicalPlayers},
			{"events", s.Events},
			{"first_game_at", formatTime(s.FirstGameAt)},
			{"last_game_at", formatTime(s.LastGameAt)},
		},
		widths: []float64{20, 24},
	}
}

func leaderboardSheet(entries []model.LeaderboardEntry) sheetData {
	sd := sheetData{
		name:   SheetLeaderboard,
		header: []any{"rank", "name", "key", "sessions", "hands", "hands_won", "net_profit", "avg_per_hand", "win_rate", "showdowns"},
		widths: []float64{6, 20, 24, 10, 8, 10, 12, 12, 10, 10},
	}
	for i, e := range entries {
		sd.rows = append(sd.rows, []any{
			i + 1, e.Name, e.Key, e.Sessions, e.Hands, e.HandsWon,
			e.NetProfit, round2(e.AvgPerHand), round2(e.WinRate), e.Showdowns,
		})
	}
	return sd
}

func sessionsSheet(totals []model.SessionTotal) sheetData {
	sd := sheetData{
		name:   SheetSessions,
		header: []any{"game_id", "started_at", "name", "key", "hands", "net"},
		widths: []float64{24, 22, 20, 24, 8, 10},
	}
	for _, t := range totals {
		sd.rows = append(sd.rows, []any{t.GameID, formatTime(t.StartedAt), t.Name, t.Key, t.Hands, t.Net})
	}
	return sd
}

// handsSheet 牌型计数在前，描述计数接在后面，kind 列区分
func handsSheet(w model.WinningHands) sheetData {
	sd := sheetData{
		name:   SheetHands,
		header: []any{"kind", "label", "count"},
		widths: []float64{12, 28, 8},
	}
	for _, r := range w.Categories {
		sd.rows = append(sd.rows, []any{"category", r.Label, r.Count})
	}
	for _, r := range w.Descriptions {
		sd.rows = append(sd.rows, []any{"description", r.Label, r.Count})
	}
	return sd
}

func countSheet(name, label string, rows []model.CountRow) sheetData {
	sd := sheetData{
		name:   name,
		header: []any{label, "count"},
		widths: []float64{16, 8},
	}
	for _, r := range rows {
		sd.rows = append(sd.rows, []any{r.Label, r.Count})
	}
	return sd
}

func potsSheet(pots []model.PotRow) sheetData {
	sd := sheetData{
		name:   SheetPots,
		header: []any{"game_id", "hand_id", "hand_number", "started_at", "pot"},
		widths: []float64{24, 24, 12, 22, 10},
	}
	for _, p := range pots {
		sd.rows = append(sd.rows, []any{p.GameID, p.HandID, p.HandNumber, formatTime(p.StartedAt), p.Pot})
	}
	return sd
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
