package model

import "time"

// ParsedReplay 回放文件解析后的中间表示；纯值，不涉及存储
type ParsedReplay struct {
	Document string
	Game     ParsedGame
	Hands    []ParsedHand
}

type ParsedGame struct {
	GameID      string
	GeneratedAt *time.Time
	RecordedBy  string
	FromCache   bool
	StartedAt   *time.Time // 所有手牌中最早的开始时间
	EndedAt     *time.Time // 所有手牌中最晚的开始时间
}

type ParsedHand struct {
	HandID     string
	Number     int
	GameType   string
	SmallBlind int64
	BigBlind   int64
	Ante       int64
	DealerSeat int
	StartedAt  *time.Time
	PlayerNet  *int64 // 导出者视角的输赢，可缺省
	Seats      []SeatedPlayer
	Actions    []Action
	Board      []BoardCard
	Results    []Result
}

// SeatedPlayer 入座玩家；HoleCards 为空表示未公开
type SeatedPlayer struct {
	PlayerID   string
	ScreenName string
	Seat       int
	Stack      int64
	HoleCards  []string
	Showed     bool
	NetGain    int64
}

// Action 按文档顺序编号的动作；PlayerID/Seat 为空表示非玩家事件
type Action struct {
	Seq      int
	Kind     ActionKind
	PlayerID *string
	Seat     *int
	Amount   *int64
	At       *time.Time
}

type BoardCard struct {
	Run      int
	Street   Street
	Position int // 街道内位置，从 0 开始
	Card     string
}

type Result struct {
	Index       int
	PlayerID    string
	Seat        int
	Pot         int64
	AmountWon   int64
	Description *string
	Category    HandCategory
	HoleCards   []string
	Combination []string
	RunNumber   *string
	HiLo        *string
}

// PlayerBySeat 座位 → 玩家
func (h *ParsedHand) PlayerBySeat(seat int) (SeatedPlayer, bool) {
	for _, p := range h.Seats {
		if p.Seat == seat {
			return p, true
		}
	}
	return SeatedPlayer{}, false
}

// RowCount 单表写入统计
type RowCount struct {
	Written        int `json:"written"`
	AlreadyPresent int `json:"already_present"`
}

func (c *RowCount) add(written bool) {
	if written {
		c.Written++
	} else {
		c.AlreadyPresent++
	}
}

// IngestSummary 单个文档入库结果
type IngestSummary struct {
	Document       string   `json:"document"`
	GameID         string   `json:"game_id"`
	Games          RowCount `json:"games"`
	Hands          RowCount `json:"hands"`
	Players        RowCount `json:"players"`
	HandPlayers    RowCount `json:"hand_players"`
	Events         RowCount `json:"events"`
	CommunityCards RowCount `json:"community_cards"`
	Results        RowCount `json:"results"`
}

func (s *IngestSummary) CountGame(written bool)          { s.Games.add(written) }
func (s *IngestSummary) CountHand(written bool)          { s.Hands.add(written) }
func (s *IngestSummary) CountPlayer(written bool)        { s.Players.add(written) }
func (s *IngestSummary) CountHandPlayer(written bool)    { s.HandPlayers.add(written) }
func (s *IngestSummary) CountEvent(written bool)         { s.Events.add(written) }
func (s *IngestSummary) CountCommunityCard(written bool) { s.CommunityCards.add(written) }
func (s *IngestSummary) CountResult(written bool)        { s.Results.add(written) }

func (s *IngestSummary) counts() []RowCount {
	return []RowCount{s.Games, s.Hands, s.Players, s.HandPlayers, s.Events, s.CommunityCards, s.Results}
}

// Written 本次新写入（或刷新）的行数
func (s *IngestSummary) Written() int {
	n := 0
	for _, c := range s.counts() {
		n += c.Written
	}
	return n
}

// AlreadyPresent 本次跳过的已存在行数
func (s *IngestSummary) AlreadyPresent() int {
	n := 0
	for _, c := range s.counts() {
		n += c.AlreadyPresent
	}
	return n
}
