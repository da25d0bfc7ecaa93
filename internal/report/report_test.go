package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"HandSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func sampleReport() *model.Report {
	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	later := start.Add(time.Minute)
	return &model.Report{
		GeneratedAt: start.Add(time.Hour),
		MinSessions: 1,
		Summary: model.Summary{
			Games: 1, Hands: 2, RawPlayers: 2, Events: 14,
			FirstGameAt: &start, LastGameAt: &later,
		},
		Leaderboard: []model.LeaderboardEntry{
			{Key: "raw:p-a", Name: "alice", Sessions: 1, Hands: 2, HandsWon: 2, NetProfit: 55, AvgPerHand: 27.5, WinRate: 100, Showdowns: 1},
			{Key: "raw:p-b", Name: "bob", Sessions: 1, Hands: 2, NetProfit: -55, AvgPerHand: -27.5, Showdowns: 1},
		},
		Sessions: model.SessionSeries{
			Series: []model.PlayerSeries{
				{Key: "raw:p-a", Name: "alice", Points: []model.SeriesPoint{
					{Index: 0, GameID: "g1", HandID: "h1", NetGain: 50, Cumulative: 50, SessionStart: true},
					{Index: 1, GameID: "g1", HandID: "h2", NetGain: 5, Cumulative: 55},
				}},
				{Key: "raw:p-b", Name: "bob", Points: []model.SeriesPoint{
					{Index: 0, GameID: "g1", HandID: "h1", NetGain: -50, Cumulative: -50, SessionStart: true},
					{Index: 1, GameID: "g1", HandID: "h2", NetGain: -5, Cumulative: -55},
				}},
			},
			Sessions: []model.SessionTotal{
				{Key: "raw:p-a", Name: "alice", GameID: "g1", StartedAt: &start, Hands: 2, Net: 55},
				{Key: "raw:p-b", Name: "bob", GameID: "g1", StartedAt: &start, Hands: 2, Net: -55},
			},
			Boundaries: []model.SessionBoundary{{GameID: "g1", Index: 0, StartedAt: &start}},
		},
		WinningHands: model.WinningHands{
			Categories:   []model.CountRow{{Label: "pair", Count: 1}, {Label: "uncontested", Count: 1}, {Label: "flush", Count: 0}},
			Descriptions: []model.CountRow{{Label: "Pair of Aces", Count: 1}},
		},
		Actions: []model.CountRow{{Label: "call", Count: 3}, {Label: "fold", Count: 1}},
		Pots: []model.PotRow{
			{GameID: "g1", HandID: "h1", HandNumber: 1, StartedAt: &start, Pot: 100},
			{GameID: "g1", HandID: "h2", HandNumber: 2, StartedAt: &later, Pot: 10},
		},
	}
}

func assertPNG(t *testing.T, data []byte) {
	t.Helper()
	require.Greater(t, len(data), len(pngSignature))
	assert.True(t, bytes.HasPrefix(data, pngSignature), "不是 PNG")
}

func TestCharts(t *testing.T) {
	rep := sampleReport()
	opts := ChartOptions{Width: 640, Height: 320}

	t.Run("leaderboard", func(t *testing.T) {
		data, err := LeaderboardChart(rep.Leaderboard, opts)
		require.NoError(t, err)
		assertPNG(t, data)
	})
	t.Run("session trend", func(t *testing.T) {
		data, err := SessionTrendChart(rep.Sessions, nil, opts)
		require.NoError(t, err)
		assertPNG(t, data)
	})
	t.Run("distribution", func(t *testing.T) {
		data, err := DistributionChart("Winning hands", rep.WinningHands.Categories, opts)
		require.NoError(t, err)
		assertPNG(t, data)
	})
	t.Run("pots", func(t *testing.T) {
		data, err := PotChart(rep.Pots, opts)
		require.NoError(t, err)
		assertPNG(t, data)
	})
}

func TestChartsWithoutData(t *testing.T) {
	opts := ChartOptions{}

	data, err := LeaderboardChart(nil, opts)
	require.NoError(t, err)
	assertPNG(t, data)

	data, err = SessionTrendChart(model.SessionSeries{}, nil, opts)
	require.NoError(t, err)
	assertPNG(t, data)

	data, err = DistributionChart("empty", []model.CountRow{{Label: "fold", Count: 0}}, opts)
	require.NoError(t, err)
	assertPNG(t, data)

	data, err = PotChart(nil, opts)
	require.NoError(t, err)
	assertPNG(t, data)
}

func TestSingleValueLeaderboard(t *testing.T) {
	// 所有值相同（含全 0）时坐标范围仍需非零
	data, err := LeaderboardChart([]model.LeaderboardEntry{{Key: "raw:x", Name: "x"}}, ChartOptions{})
	require.NoError(t, err)
	assertPNG(t, data)
}

func TestPaddedRange(t *testing.T) {
	r := paddedRange([]float64{-55, 55})
	assert.InDelta(t, -66, r.Min, 1e-9)
	assert.InDelta(t, 66, r.Max, 1e-9)

	r = paddedRange(nil)
	assert.Less(t, r.Min, r.Max)

	r = paddedRange([]float64{0, 0})
	assert.Less(t, r.Min, r.Max)
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t,
		[]string{SheetSummary, SheetLeaderboard, SheetSessions, SheetHands, SheetActions, SheetPots},
		f.GetSheetList())

	rows, err := f.GetRows(SheetLeaderboard)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "net_profit", rows[0][6])
	assert.Equal(t, []string{"1", "alice", "raw:p-a"}, rows[1][:3])
	assert.Equal(t, "55", rows[1][6])
	assert.Equal(t, "-55", rows[2][6])

	rows, err = f.GetRows(SheetHands)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"description", "Pair of Aces", "1"}, rows[4])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Contains(t, summary, []string{"first_game_at", "2024-03-01T22:00:00Z"})
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	files, err := WriteAll(dir, sampleReport(), ChartOptions{Width: 320, Height: 200})
	require.NoError(t, err)
	require.Len(t, files, 7)

	for _, name := range []string{FileLeaderboard, FileSessionTrend, FileCategories, FileActions, FilePots} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assertPNG(t, data)
	}
	js, err := os.ReadFile(filepath.Join(dir, FileReportJSON))
	require.NoError(t, err)
	assert.Contains(t, string(js), `"net_profit": 55`)
}
