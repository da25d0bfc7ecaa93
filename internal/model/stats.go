package model

import "time"

// 聚合层输出：纯数据，不含任何展示格式

// CountRow 通用计数
type CountRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PotRow 单手牌最大底池
type PotRow struct {
	GameID     string     `json:"game_id"`
	HandID     string     `json:"hand_id"`
	HandNumber int        `json:"hand_number"`
	StartedAt  *time.Time `json:"started_at"`
	Pot        int64      `json:"pot"`
}

// LeaderboardEntry 一个身份（规范玩家或未映射的原始玩家）的汇总
type LeaderboardEntry struct {
	Key        string  `json:"key"` // canonical:<id> / raw:<id>
	Name       string  `json:"name"`
	Canonical  bool    `json:"canonical"`
	Sessions   int     `json:"sessions"`
	Hands      int     `json:"hands"`
	HandsWon   int     `json:"hands_won"`
	NetProfit  int64   `json:"net_profit"`
	AvgPerHand float64 `json:"avg_per_hand"`
	WinRate    float64 `json:"win_rate"` // 赢的手数占比，百分数
	Showdowns  int     `json:"showdowns"`
}

// SeriesPoint 累计盈亏曲线上的一点；Index 是全局手牌序号（按时间）
type SeriesPoint struct {
	Index        int    `json:"index"`
	GameID       string `json:"game_id"`
	HandID       string `json:"hand_id"`
	NetGain      int64  `json:"net_gain"`
	Cumulative   int64  `json:"cumulative"`
	SessionStart bool   `json:"session_start"` // 该身份在这场牌局的第一手
}

// PlayerSeries 一个身份的累计曲线
type PlayerSeries struct {
	Key    string        `json:"key"`
	Name   string        `json:"name"`
	Points []SeriesPoint `json:"points"`
}

// SessionTotal 一个身份在一场牌局内的合计
type SessionTotal struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	GameID    string     `json:"game_id"`
	StartedAt *time.Time `json:"started_at"`
	Hands     int        `json:"hands"`
	Net       int64      `json:"net"`
}

// SessionBoundary 牌局在全局手牌序号上的起点
type SessionBoundary struct {
	GameID    string     `json:"game_id"`
	Index     int        `json:"index"`
	StartedAt *time.Time `json:"started_at"`
}

type SessionSeries struct {
	Series     []PlayerSeries    `json:"series"`
	Sessions   []SessionTotal    `json:"sessions"`
	Boundaries []SessionBoundary `json:"boundaries"`
}

type WinningHands struct {
	Categories   []CountRow `json:"categories"`
	Descriptions []CountRow `json:"descriptions"`
}

type Summary struct {
	Games            int64      `json:"games"`
	Hands            int64      `json:"hands"`
	RawPlayers       int64      `json:"raw_players"`
	CanonicalPlayers int64      `json:"canonical_players"`
	Events           int64      `json:"events"`
	FirstGameAt      *time.Time `json:"first_game_at"`
	LastGameAt       *time.Time `json:"last_game_at"`
}

// Report 同一快照上的全部聚合结果
type Report struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	MinSessions  int                `json:"min_sessions"`
	Summary      Summary            `json:"summary"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Sessions     SessionSeries      `json:"sessions"`
	WinningHands WinningHands       `json:"winning_hands"`
	Actions      []CountRow         `json:"actions"`
	Pots         []PotRow           `json:"pots"`
}
