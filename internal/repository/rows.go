package repository

import (
	"encoding/json"
	"fmt"

	"HandSync/internal/model"

	"gorm.io/datatypes"
)

// 中间表示 → 表行

func handRow(gameID, recordedBy string, h *model.ParsedHand) model.Hand {
	row := model.Hand{
		GameID:     gameID,
		HandID:     h.HandID,
		HandNumber: h.Number,
		GameType:   h.GameType,
		SmallBlind: h.SmallBlind,
		BigBlind:   h.BigBlind,
		Ante:       h.Ante,
		DealerSeat: h.DealerSeat,
		StartedAt:  h.StartedAt,
		PlayerNet:  h.PlayerNet,
	}
	if h.PlayerNet != nil {
		row.PlayerNetBy = optString(recordedBy)
	}
	return row
}

func handPlayerRow(gameID, handID string, s model.SeatedPlayer) model.HandPlayer {
	return model.HandPlayer{
		GameID:      gameID,
		HandID:      handID,
		PlayerID:    s.PlayerID,
		ScreenName:  s.ScreenName,
		Seat:        s.Seat,
		Stack:       s.Stack,
		HoleCards:   joinCards(s.HoleCards),
		ShowedCards: s.Showed,
		NetGain:     s.NetGain,
	}
}

func eventRow(gameID, handID string, a model.Action) model.Event {
	return model.Event{
		GameID:  gameID,
		HandID:  handID,
		Seq:     a.Seq,
		Action:  a.Kind,
		ActorID: a.PlayerID,
		Seat:    a.Seat,
		Amount:  a.Amount,
		At:      a.At,
	}
}

func resultRow(gameID, handID string, r model.Result) (model.HandResult, error) {
	row := model.HandResult{
		GameID:      gameID,
		HandID:      handID,
		ResultIndex: r.Index,
		PlayerID:    r.PlayerID,
		Seat:        r.Seat,
		Pot:         r.Pot,
		AmountWon:   r.AmountWon,
		Description: r.Description,
		Category:    r.Category,
		HoleCards:   joinCards(r.HoleCards),
		RunNumber:   r.RunNumber,
		HiLo:        r.HiLo,
	}
	if len(r.Combination) > 0 {
		b, err := json.Marshal(r.Combination)
		if err != nil {
			return row, fmt.Errorf("序列化组合牌失败: %w", err)
		}
		row.Combination = datatypes.JSON(b)
	}
	return row, nil
}

// 同键行的内容比较；Hand 的导出者输赢单独合并，不参与比较

func sameHand(a, b model.Hand) bool {
	return a.HandNumber == b.HandNumber &&
		a.GameType == b.GameType &&
		a.SmallBlind == b.SmallBlind &&
		a.BigBlind == b.BigBlind &&
		a.Ante == b.Ante &&
		a.DealerSeat == b.DealerSeat &&
		sameTime(a.StartedAt, b.StartedAt)
}

func sameHandPlayer(a, b model.HandPlayer) bool {
	return a.ScreenName == b.ScreenName &&
		a.Seat == b.Seat &&
		a.Stack == b.Stack &&
		sameString(a.HoleCards, b.HoleCards) &&
		a.ShowedCards == b.ShowedCards &&
		a.NetGain == b.NetGain
}

func sameEvent(a, b model.Event) bool {
	return a.Action == b.Action &&
		sameString(a.ActorID, b.ActorID) &&
		sameInt(a.Seat, b.Seat) &&
		sameInt64(a.Amount, b.Amount) &&
		sameTime(a.At, b.At)
}

func sameResult(a, b model.HandResult) bool {
	return a.PlayerID == b.PlayerID &&
		a.Seat == b.Seat &&
		a.Pot == b.Pot &&
		a.AmountWon == b.AmountWon &&
		sameString(a.Description, b.Description) &&
		a.Category == b.Category &&
		sameString(a.HoleCards, b.HoleCards) &&
		sameCards(a.Combination, b.Combination) &&
		sameString(a.RunNumber, b.RunNumber) &&
		sameString(a.HiLo, b.HiLo)
}

// sameCards JSON 列按内容比较；postgres jsonb 会重排空白
func sameCards(a, b datatypes.JSON) bool {
	ca, errA := decodeCards(a)
	cb, errB := decodeCards(b)
	if errA != nil || errB != nil {
		return string(a) == string(b)
	}
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

func decodeCards(j datatypes.JSON) ([]string, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	var cards []string
	err := json.Unmarshal(j, &cards)
	return cards, err
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
