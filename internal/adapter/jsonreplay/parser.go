package jsonreplay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"HandSync/internal/adapter"
	"HandSync/internal/interfaces"
	"HandSync/internal/model"

	"github.com/sirupsen/logrus"
)

// FormatName 注册名，对应 ingest.format
const FormatName = "json"

func init() {
	adapter.Register(FormatName, New)
}

// 载荷 type 取值：数字或小写名称
const (
	tokenCheckOrCall = "0"
	tokenBoard       = "9"
	tokenResult      = "10"
)

var actionTokens = map[string]model.ActionKind{
	"2":  model.ActionBigBlind,
	"3":  model.ActionSmallBlind,
	"7":  model.ActionRaise,
	"8":  model.ActionBet,
	"11": model.ActionFold,
	"12": model.ActionShowCards,
	"15": model.ActionShowdown,
	"16": model.ActionAllIn,

	"check":       model.ActionCheck,
	"call":        model.ActionCall,
	"bet":         model.ActionBet,
	"raise":       model.ActionRaise,
	"fold":        model.ActionFold,
	"all_in":      model.ActionAllIn,
	"all-in":      model.ActionAllIn,
	"allin":       model.ActionAllIn,
	"small_blind": model.ActionSmallBlind,
	"big_blind":   model.ActionBigBlind,
	"show_cards":  model.ActionShowCards,
	"showdown":    model.ActionShowdown,
}

var boardTokens = map[string]bool{tokenBoard: true, "board": true, "community_cards": true}
var resultTokens = map[string]bool{tokenResult: true, "result": true, "hand_result": true}

// Parser JSON 回放解析器，无状态，可并发使用
type Parser struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) interfaces.ReplayParser {
	return &Parser{logger: logger}
}

func (p *Parser) Format() string {
	return FormatName
}

// Parse 把一个回放文档转换为中间表示；不访问存储
func (p *Parser) Parse(document string, data []byte) (*model.ParsedReplay, error) {
	var doc model.ReplayDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.ParseError{Document: document, Err: fmt.Errorf("JSON 格式错误: %w", err)}
	}

	out := &model.ParsedReplay{Document: document}
	if doc.GameID == nil || strings.TrimSpace(*doc.GameID) == "" {
		return nil, missing(document, "gameId")
	}
	out.Game.GameID = strings.TrimSpace(*doc.GameID)
	out.Game.FromCache = doc.FromCache
	if doc.PlayerID != nil {
		out.Game.RecordedBy = strings.TrimSpace(*doc.PlayerID)
	}
	if doc.GeneratedAt != nil && *doc.GeneratedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *doc.GeneratedAt)
		if err != nil {
			return nil, &model.ParseError{Document: document, Location: "generatedAt", Token: *doc.GeneratedAt, Err: err}
		}
		t = t.UTC()
		out.Game.GeneratedAt = &t
	}

	out.Hands = make([]model.ParsedHand, 0, len(doc.Hands))
	for i, rh := range doc.Hands {
		if rh == nil {
			return nil, missing(document, fmt.Sprintf("hands[%d]", i))
		}
		hp := handParser{document: document, loc: fmt.Sprintf("hands[%d]", i)}
		h, err := hp.parse(rh)
		if err != nil {
			return nil, err
		}
		out.Game.StartedAt = earliest(out.Game.StartedAt, h.StartedAt)
		out.Game.EndedAt = latest(out.Game.EndedAt, h.StartedAt)
		for _, a := range h.Actions {
			out.Game.EndedAt = latest(out.Game.EndedAt, a.At)
		}
		out.Hands = append(out.Hands, *h)
	}

	p.logger.WithFields(logrus.Fields{
		"document": document,
		"game_id":  out.Game.GameID,
		"hands":    len(out.Hands),
	}).Debug("回放解析完成")
	return out, nil
}

// handParser 单手牌解析状态
type handParser struct {
	document string
	loc      string
	hand     *model.ParsedHand
	seats    map[int]int // 座位 → Seats 下标
	boards   map[boardKey][]string
}

type boardKey struct {
	run    int
	street model.Street
}

func (hp *handParser) fail(loc, token string, err error) error {
	if loc != "" {
		loc = hp.loc + "." + loc
	} else {
		loc = hp.loc
	}
	return &model.ParseError{Document: hp.document, Location: loc, Token: token, Err: err}
}

func (hp *handParser) missing(field string) error {
	return hp.fail(field, "", model.ErrMissingField)
}

func (hp *handParser) parse(rh *model.ReplayHand) (*model.ParsedHand, error) {
	h := &model.ParsedHand{GameType: rh.GameType}
	hp.hand = h
	hp.seats = make(map[int]int, len(rh.Players))
	hp.boards = make(map[boardKey][]string)

	if rh.ID == nil || strings.TrimSpace(*rh.ID) == "" {
		return nil, hp.missing("id")
	}
	h.HandID = strings.TrimSpace(*rh.ID)
	hp.loc = fmt.Sprintf("%s(%s)", hp.loc, h.HandID)

	if rh.Number == nil || *rh.Number == "" {
		return nil, hp.missing("number")
	}
	n, err := strconv.Atoi(rh.Number.String())
	if err != nil {
		return nil, hp.fail("number", rh.Number.String(), err)
	}
	h.Number = n

	switch {
	case rh.SmallBlind == nil:
		return nil, hp.missing("smallBlind")
	case rh.BigBlind == nil:
		return nil, hp.missing("bigBlind")
	case rh.DealerSeat == nil:
		return nil, hp.missing("dealerSeat")
	}
	h.SmallBlind, h.BigBlind, h.DealerSeat = *rh.SmallBlind, *rh.BigBlind, *rh.DealerSeat
	if rh.Ante != nil {
		h.Ante = *rh.Ante
	}
	h.StartedAt = millis(rh.StartedAt)
	h.PlayerNet = rh.PlayerNet

	for i, rp := range rh.Players {
		if err := hp.seat(i, rp); err != nil {
			return nil, err
		}
	}
	for i, ev := range rh.Events {
		if err := hp.event(i, ev); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (hp *handParser) seat(i int, rp *model.ReplayPlayer) error {
	loc := fmt.Sprintf("players[%d]", i)
	if rp == nil {
		return hp.missing(loc)
	}
	if rp.ID == nil || strings.TrimSpace(*rp.ID) == "" {
		return hp.missing(loc + ".id")
	}
	if rp.Seat == nil {
		return hp.missing(loc + ".seat")
	}
	if rp.Stack == nil {
		return hp.missing(loc + ".stack")
	}
	sp := model.SeatedPlayer{
		PlayerID: strings.TrimSpace(*rp.ID),
		Seat:     *rp.Seat,
		Stack:    *rp.Stack,
		Showed:   rp.Show,
	}
	sp.ScreenName = sp.PlayerID
	if rp.Name != nil && strings.TrimSpace(*rp.Name) != "" {
		sp.ScreenName = strings.TrimSpace(*rp.Name)
	}

	if _, dup := hp.seats[sp.Seat]; dup {
		return hp.fail(loc+".seat", strconv.Itoa(sp.Seat), fmt.Errorf("座位重复: %w", model.ErrInvariant))
	}
	for _, other := range hp.hand.Seats {
		if other.PlayerID == sp.PlayerID {
			return hp.fail(loc+".id", sp.PlayerID, fmt.Errorf("同一玩家重复入座: %w", model.ErrInvariant))
		}
	}

	cards, bad, err := normalizeCards(rp.Hand)
	if err != nil {
		return hp.fail(loc+".hand", bad, err)
	}
	sp.HoleCards = cards

	switch {
	case rp.NetGain != nil:
		sp.NetGain = *rp.NetGain
	case rp.EndStack != nil:
		sp.NetGain = *rp.EndStack - sp.Stack
	default:
		return hp.fail(loc, sp.PlayerID, model.ErrNetGainUndetermined)
	}

	hp.seats[sp.Seat] = len(hp.hand.Seats)
	hp.hand.Seats = append(hp.hand.Seats, sp)
	return nil
}

func (hp *handParser) seated(loc string, seat *int) (*model.SeatedPlayer, error) {
	if seat == nil {
		return nil, hp.missing(loc + ".seat")
	}
	idx, ok := hp.seats[*seat]
	if !ok {
		return nil, hp.fail(loc+".seat", strconv.Itoa(*seat), model.ErrUnknownSeat)
	}
	return &hp.hand.Seats[idx], nil
}

func (hp *handParser) event(i int, ev *model.ReplayEvent) error {
	loc := fmt.Sprintf("events[%d]", i)
	if ev == nil || ev.Payload == nil {
		return hp.missing(loc + ".payload")
	}
	pl := ev.Payload
	if pl.Type == nil || *pl.Type == "" {
		return hp.missing(loc + ".payload.type")
	}
	token := strings.ToLower(pl.Type.String())
	loc += ".payload"

	switch {
	case boardTokens[token]:
		return hp.board(loc, pl)
	case resultTokens[token]:
		return hp.result(loc, pl)
	}

	var kind model.ActionKind
	if token == tokenCheckOrCall {
		kind = model.ActionCheck
		if pl.Value != nil && *pl.Value > 0 {
			kind = model.ActionCall
		}
	} else {
		k, ok := actionTokens[token]
		if !ok {
			return hp.fail(loc+".type", pl.Type.String(), model.ErrUnknownAction)
		}
		kind = k
	}

	a := model.Action{
		Seq:    len(hp.hand.Actions),
		Kind:   kind,
		Amount: pl.Value,
		At:     millis(ev.At),
	}
	// 摊牌事件可以不带座位
	if pl.Seat != nil || kind != model.ActionShowdown {
		sp, err := hp.seated(loc, pl.Seat)
		if err != nil {
			return err
		}
		id, seat := sp.PlayerID, sp.Seat
		a.PlayerID, a.Seat = &id, &seat
	}
	hp.hand.Actions = append(hp.hand.Actions, a)
	return nil
}

// board 公共牌可能是累计形式（转牌时给出全部 4 张），只保留本街新增的牌
func (hp *handParser) board(loc string, pl *model.ReplayPayload) error {
	if pl.Turn == nil {
		return hp.missing(loc + ".turn")
	}
	street, err := streetFromTurn(*pl.Turn)
	if err != nil {
		return hp.fail(loc+".turn", strconv.Itoa(*pl.Turn), err)
	}
	run := 1
	if pl.Run != nil {
		run = *pl.Run
	}
	cards, bad, err := normalizeCards(pl.Cards)
	if err != nil {
		return hp.fail(loc+".cards", bad, err)
	}

	size := street.BoardSize()
	incr := size
	if street != model.StreetFlop {
		incr = 1
	}
	switch len(cards) {
	case size:
		if known, ok := hp.earlierStreets(run, street); ok && strings.Join(known, ",") != strings.Join(cards[:size-incr], ",") {
			return hp.fail(loc+".cards", strings.Join(pl.Cards, ","), fmt.Errorf("累计公共牌与前面的街道不一致: %w", model.ErrInvariant))
		}
		cards = cards[size-incr:]
	case incr:
	default:
		return hp.fail(loc+".cards", strings.Join(pl.Cards, ","), fmt.Errorf("%s 牌数不正确: %w", street, model.ErrMalformedCard))
	}

	key := boardKey{run: run, street: street}
	if prev, ok := hp.boards[key]; ok {
		if strings.Join(prev, ",") == strings.Join(cards, ",") {
			return nil
		}
		return hp.fail(loc+".cards", strings.Join(pl.Cards, ","), fmt.Errorf("同一街道公共牌不一致: %w", model.ErrInvariant))
	}
	hp.boards[key] = cards
	for pos, c := range cards {
		hp.hand.Board = append(hp.hand.Board, model.BoardCard{Run: run, Street: street, Position: pos, Card: c})
	}
	return nil
}

// earlierStreets 同一 run 内此前街道的公共牌；有缺失时返回 false
func (hp *handParser) earlierStreets(run int, street model.Street) ([]string, bool) {
	var out []string
	for _, st := range []model.Street{model.StreetFlop, model.StreetTurn, model.StreetRiver} {
		if st == street {
			break
		}
		cards, ok := hp.boards[boardKey{run: run, street: st}]
		if !ok {
			return nil, false
		}
		out = append(out, cards...)
	}
	return out, true
}

func (hp *handParser) result(loc string, pl *model.ReplayPayload) error {
	sp, err := hp.seated(loc, pl.Seat)
	if err != nil {
		return err
	}
	holeCards, bad, err := normalizeCards(pl.Cards)
	if err != nil {
		return hp.fail(loc+".cards", bad, err)
	}
	combination, bad, err := normalizeCards(pl.Combination)
	if err != nil {
		return hp.fail(loc+".combination", bad, err)
	}

	r := model.Result{
		Index:       len(hp.hand.Results),
		PlayerID:    sp.PlayerID,
		Seat:        sp.Seat,
		Description: pl.HandDescription,
		HoleCards:   holeCards,
		Combination: combination,
		HiLo:        pl.HiLo,
	}
	if pl.Pot != nil {
		r.Pot = *pl.Pot
	}
	if pl.Value != nil {
		r.AmountWon = *pl.Value
	}
	if pl.RunNumber != nil && *pl.RunNumber != "" {
		s := pl.RunNumber.String()
		r.RunNumber = &s
	}
	r.Category = classifyResult(r.Description, r.Combination)
	hp.hand.Results = append(hp.hand.Results, r)
	return nil
}

func missing(document, loc string) error {
	return &model.ParseError{Document: document, Location: loc, Err: model.ErrMissingField}
}

func millis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func earliest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

func latest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}
