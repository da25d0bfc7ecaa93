package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ReplayDocument 回放 JSON 原始结构（字段名与导出文件一致），可选/必填字段用指针区分
type ReplayDocument struct {
	GameID      *string       `json:"gameId"`
	GeneratedAt *string       `json:"generatedAt"` // RFC3339
	PlayerID    *string       `json:"playerId"`    // 导出者
	FromCache   bool          `json:"fromCache"`
	Hands       []*ReplayHand `json:"hands"`
}

type ReplayHand struct {
	ID         *string         `json:"id"`
	Number     *Token          `json:"number"` // 可能是字符串或数字
	GameType   string          `json:"gameType"`
	SmallBlind *int64          `json:"smallBlind"`
	BigBlind   *int64          `json:"bigBlind"`
	Ante       *int64          `json:"ante"`
	DealerSeat *int            `json:"dealerSeat"`
	StartedAt  *int64          `json:"startedAt"` // 毫秒时间戳
	PlayerNet  *int64          `json:"playerNet"`
	Players    []*ReplayPlayer `json:"players"`
	Events     []*ReplayEvent  `json:"events"`
}

type ReplayPlayer struct {
	ID       *string  `json:"id"`
	Name     *string  `json:"name"`
	Seat     *int     `json:"seat"`
	Stack    *int64   `json:"stack"`
	Hand     []string `json:"hand"` // 底牌，未公开时为空
	NetGain  *int64   `json:"netGain"`
	EndStack *int64   `json:"endStack"`
	Show     bool     `json:"show"`
}

type ReplayEvent struct {
	At      *int64         `json:"at"`
	Payload *ReplayPayload `json:"payload"`
}

// ReplayPayload 所有事件类型共用一个载荷结构，按 Type 取用字段
type ReplayPayload struct {
	Type            *Token   `json:"type"`
	Seat            *int     `json:"seat"`
	Value           *int64   `json:"value"`
	Turn            *int     `json:"turn"`
	Run             *int     `json:"run"`
	Cards           []string `json:"cards"`
	Pot             *int64   `json:"pot"`
	HandDescription *string  `json:"handDescription"`
	Combination     []string `json:"combination"`
	Position        *int     `json:"position"`
	RunNumber       *Token   `json:"runNumber"`
	HiLo            *string  `json:"hiLo"`
}

// Token 兼容数字和字符串两种写法的标量，保留原文
type Token string

func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Token(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Token(n.String())
	return nil
}

func (t Token) String() string { return string(t) }
