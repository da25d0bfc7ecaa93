package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"HandSync/internal/model"

	"github.com/brianvoe/gofakeit/v7"
)

// ReplayGenerator 用固定种子生成结构合法的随机回放，玩家池在多个文档间共享
type ReplayGenerator struct {
	faker   *gofakeit.Faker
	seed    int64
	players []genPlayer
}

type genPlayer struct {
	id   string
	name string
}

var genActions = []string{"check", "call", "bet", "raise", "fold", "all_in"}

func NewReplayGenerator(seed int64, playerCount int) *ReplayGenerator {
	g := &ReplayGenerator{faker: gofakeit.New(uint64(seed)), seed: seed}
	if playerCount < 2 {
		playerCount = 2
	}
	for i := 0; i < playerCount; i++ {
		g.players = append(g.players, genPlayer{
			id:   fmt.Sprintf("raw-%s", g.faker.LetterN(8)),
			name: g.faker.Username(),
		})
	}
	return g
}

// Seed 生成器种子，失败时打印方便复现
func (g *ReplayGenerator) Seed() int64 { return g.seed }

// Replay 生成一场牌局；部分玩家会换昵称
func (g *ReplayGenerator) Replay(gameID string, hands int, start time.Time) []byte {
	for i := range g.players {
		if g.faker.Number(0, 4) == 0 {
			g.players[i].name = g.faker.Username()
		}
	}

	gen := start.UTC().Format(time.RFC3339)
	doc := model.ReplayDocument{GameID: &gameID, GeneratedAt: &gen}
	for h := 0; h < hands; h++ {
		doc.Hands = append(doc.Hands, g.hand(gameID, h, start.Add(time.Duration(h)*time.Minute)))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

func (g *ReplayGenerator) hand(gameID string, n int, at time.Time) *model.ReplayHand {
	count := g.faker.Number(2, len(g.players))
	order := make([]int, len(g.players))
	for i := range order {
		order[i] = i
	}
	g.faker.ShuffleInts(order)
	order = order[:count]

	id := fmt.Sprintf("%s-h%d", gameID, n+1)
	number := model.Token(fmt.Sprint(n + 1))
	sb, bb, dealer := int64(5), int64(10), 1
	ms := at.UnixMilli()
	rh := &model.ReplayHand{
		ID: &id, Number: &number, GameType: "th",
		SmallBlind: &sb, BigBlind: &bb, DealerSeat: &dealer, StartedAt: &ms,
	}

	var total int64
	for i, idx := range order {
		p := g.players[idx]
		pid, name, seat := p.id, p.name, i+1
		stack := int64(g.faker.Number(100, 2000))
		var net int64
		if i > 0 {
			net = -int64(g.faker.Number(0, 100))
			total += net
		}
		rp := &model.ReplayPlayer{ID: &pid, Name: &name, Seat: &seat, Stack: &stack, NetGain: &net}
		rh.Players = append(rh.Players, rp)
	}
	// 第一个入座的玩家赢下全部
	win := -total
	rh.Players[0].NetGain = &win

	deck := g.deck()
	for k := 0; k < g.faker.Number(0, 12); k++ {
		seat := g.faker.Number(1, count)
		typ := model.Token(genActions[g.faker.Number(0, len(genActions)-1)])
		val := int64(g.faker.Number(0, 200))
		rh.Events = append(rh.Events, &model.ReplayEvent{At: &ms, Payload: &model.ReplayPayload{Type: &typ, Seat: &seat, Value: &val}})
		if k == 2 {
			turn, board := 1, model.Token("9")
			rh.Events = append(rh.Events, &model.ReplayEvent{At: &ms, Payload: &model.ReplayPayload{Type: &board, Turn: &turn, Cards: deck[:3]}})
		}
	}
	seat, result, pot := 1, model.Token("10"), -total
	rh.Events = append(rh.Events, &model.ReplayEvent{At: &ms, Payload: &model.ReplayPayload{Type: &result, Seat: &seat, Pot: &pot, Value: &pot}})
	return rh
}

func (g *ReplayGenerator) deck() []string {
	const ranks, suits = "23456789TJQKA", "cdhs"
	cards := make([]string, 0, 52)
	for _, r := range ranks {
		for _, s := range suits {
			cards = append(cards, string(r)+string(s))
		}
	}
	g.faker.ShuffleStrings(cards)
	return cards
}
