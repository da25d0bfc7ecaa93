package jsonreplay

import (
	"errors"
	"strings"
	"testing"
	"time"

	"HandSync/internal/adapter"
	"HandSync/internal/model"
	"HandSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser() *Parser {
	return &Parser{logger: testutil.NullLogger()}
}

func TestRegistered(t *testing.T) {
	p, err := adapter.New(FormatName, testutil.NullLogger())
	require.NoError(t, err)
	assert.Equal(t, "json", p.Format())
	assert.Contains(t, adapter.ListFactories(), FormatName)

	_, err = adapter.New("xml", testutil.NullLogger())
	assert.Error(t, err)
}

func TestParseTwoHandScenario(t *testing.T) {
	out, err := newParser().Parse("g1.json", testutil.TwoHandReplay("g1"))
	require.NoError(t, err)

	assert.Equal(t, "g1.json", out.Document)
	assert.Equal(t, "g1", out.Game.GameID)
	assert.Equal(t, "p-a", out.Game.RecordedBy)
	require.NotNil(t, out.Game.GeneratedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC), *out.Game.GeneratedAt)
	require.NotNil(t, out.Game.StartedAt)
	assert.Equal(t, testutil.TwoHandStart, out.Game.StartedAt.UnixMilli())
	assert.Equal(t, testutil.TwoHandStart+60_000, out.Game.EndedAt.UnixMilli())
	require.Len(t, out.Hands, 2)

	h1 := out.Hands[0]
	assert.Equal(t, "g1-h1", h1.HandID)
	assert.Equal(t, 1, h1.Number)
	assert.Equal(t, int64(5), h1.SmallBlind)
	assert.Equal(t, int64(10), h1.BigBlind)
	assert.Equal(t, int64(0), h1.Ante)
	require.NotNil(t, h1.PlayerNet)
	assert.Equal(t, int64(50), *h1.PlayerNet)
	assert.False(t, out.Game.FromCache)
	assert.Equal(t, 1, h1.DealerSeat)

	a, ok := h1.PlayerBySeat(1)
	require.True(t, ok)
	assert.Equal(t, "p-a", a.PlayerID)
	assert.Equal(t, int64(50), a.NetGain)
	assert.Equal(t, []string{"Ah", "Kd"}, a.HoleCards)
	b, ok := h1.PlayerBySeat(2)
	require.True(t, ok)
	assert.Equal(t, int64(-50), b.NetGain, "endStack - stack")

	kinds := make([]model.ActionKind, 0, len(h1.Actions))
	for i, act := range h1.Actions {
		assert.Equal(t, i, act.Seq)
		kinds = append(kinds, act.Kind)
	}
	assert.Equal(t, []model.ActionKind{
		model.ActionSmallBlind, model.ActionBigBlind, model.ActionRaise, model.ActionCall,
		model.ActionCheck, model.ActionCheck, model.ActionCheck, model.ActionCheck,
		model.ActionCheck, model.ActionCheck, model.ActionShowdown,
	}, kinds)
	assert.Nil(t, h1.Actions[10].PlayerID, "showdown without seat")
	require.NotNil(t, h1.Actions[2].PlayerID)
	assert.Equal(t, "p-a", *h1.Actions[2].PlayerID)

	assert.Equal(t, []model.BoardCard{
		{Run: 1, Street: model.StreetFlop, Position: 0, Card: "Ac"},
		{Run: 1, Street: model.StreetFlop, Position: 1, Card: "7d"},
		{Run: 1, Street: model.StreetFlop, Position: 2, Card: "2s"},
		{Run: 1, Street: model.StreetTurn, Position: 0, Card: "9h"},
		{Run: 1, Street: model.StreetRiver, Position: 0, Card: "3c"},
	}, h1.Board)

	require.Len(t, h1.Results, 1)
	r := h1.Results[0]
	assert.Equal(t, "p-a", r.PlayerID)
	assert.Equal(t, int64(100), r.AmountWon)
	assert.Equal(t, model.CategoryPair, r.Category)
	require.NotNil(t, r.RunNumber)
	assert.Equal(t, "1", *r.RunNumber)

	h2 := out.Hands[1]
	assert.Equal(t, 2, h2.Number, "numeric hand number")
	assert.Len(t, h2.Actions, 3)
	assert.Equal(t, model.ActionFold, h2.Actions[2].Kind)
	assert.Empty(t, h2.Board)
	require.Len(t, h2.Results, 1)
	assert.Equal(t, model.CategoryUncontested, h2.Results[0].Category)
}

func TestParseErrors(t *testing.T) {
	valid := string(testutil.TwoHandReplay("g1"))

	tests := []struct {
		name     string
		doc      string
		sentinel error
		location string
		token    string
	}{
		{
			name:     "unknown action token",
			doc:      strings.Replace(valid, `"type": 11`, `"type": 42`, 1),
			sentinel: model.ErrUnknownAction,
			location: "hands[1](g1-h2).events[2].payload.type",
			token:    "42",
		},
		{
			name:     "unknown action name",
			doc:      strings.Replace(valid, `"type": "check"`, `"type": "muck"`, 1),
			sentinel: model.ErrUnknownAction,
			token:    "muck",
		},
		{
			name:     "malformed card",
			doc:      strings.Replace(valid, `"Qs", "Qc"`, `"Qs", "Qx"`, 1),
			sentinel: model.ErrMalformedCard,
			token:    "Qx",
		},
		{
			name:     "event seat not seated",
			doc:      strings.Replace(valid, `{"type": 11, "seat": 2}`, `{"type": 11, "seat": 7}`, 1),
			sentinel: model.ErrUnknownSeat,
			token:    "7",
		},
		{
			name:     "result seat not seated",
			doc:      strings.Replace(valid, `"seat": 1, "pot": 15`, `"seat": 5, "pot": 15`, 1),
			sentinel: model.ErrUnknownSeat,
		},
		{
			name:     "net gain undetermined",
			doc:      strings.Replace(valid, `, "endStack": 950`, ``, 1),
			sentinel: model.ErrNetGainUndetermined,
			token:    "p-b",
		},
		{
			name:     "missing game id",
			doc:      strings.Replace(valid, `"gameId": "g1",`, ``, 1),
			sentinel: model.ErrMissingField,
			location: "gameId",
		},
		{
			name:     "missing big blind",
			doc:      strings.Replace(valid, `"bigBlind": 10,`, ``, 1),
			sentinel: model.ErrMissingField,
		},
		{
			name:     "duplicate seat",
			doc:      strings.Replace(valid, `"name": "bob", "seat": 2, "stack": 950`, `"name": "bob", "seat": 1, "stack": 950`, 1),
			sentinel: model.ErrInvariant,
		},
		{
			name:     "inconsistent board",
			doc:      strings.Replace(valid, `["Ac", "7d", "2s", "9h"]`, `["Ad", "7d", "2s", "9h"]`, 1),
			sentinel: model.ErrInvariant,
		},
		{
			name:     "board card count",
			doc:      strings.Replace(valid, `["3c"]`, `["3c", "4c"]`, 1),
			sentinel: model.ErrMalformedCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEqual(t, valid, tt.doc, "replacement did not apply")
			_, err := newParser().Parse("g1.json", []byte(tt.doc))
			require.Error(t, err)

			var pe *model.ParseError
			require.True(t, errors.As(err, &pe), "want ParseError, got %T", err)
			assert.Equal(t, "g1.json", pe.Document)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			if tt.location != "" {
				assert.Equal(t, tt.location, pe.Location)
			}
			if tt.token != "" {
				assert.Equal(t, tt.token, pe.Token)
			}
		})
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := newParser().Parse("bad.json", []byte(`{"gameId": `))
	var pe *model.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.json", pe.Document)
}

func TestCheckOrCall(t *testing.T) {
	doc := `{"gameId":"g","hands":[{"id":"h","number":1,"smallBlind":1,"bigBlind":2,"dealerSeat":1,
	  "players":[{"id":"x","seat":1,"stack":10,"netGain":0}],
	  "events":[{"payload":{"type":0,"seat":1}},{"payload":{"type":"0","seat":1,"value":3}},{"payload":{"type":"ALL_IN","seat":1,"value":7}}]}]}`
	out, err := newParser().Parse("g.json", []byte(doc))
	require.NoError(t, err)

	acts := out.Hands[0].Actions
	require.Len(t, acts, 3)
	assert.Equal(t, model.ActionCheck, acts[0].Kind)
	assert.Nil(t, acts[0].Amount)
	assert.Equal(t, model.ActionCall, acts[1].Kind)
	assert.Equal(t, model.ActionAllIn, acts[2].Kind)
	assert.Nil(t, acts[0].At)
	assert.Equal(t, "x", out.Hands[0].Seats[0].ScreenName, "name falls back to id")
	assert.Nil(t, out.Game.GeneratedAt)
}

func TestRunItTwiceBoards(t *testing.T) {
	doc := `{"gameId":"g","hands":[{"id":"h","number":1,"smallBlind":1,"bigBlind":2,"dealerSeat":1,
	  "players":[{"id":"x","seat":1,"stack":10,"netGain":0}],
	  "events":[
	    {"payload":{"type":9,"turn":1,"cards":["2c","3c","4c"]}},
	    {"payload":{"type":9,"turn":2,"run":1,"cards":["5c"]}},
	    {"payload":{"type":9,"turn":2,"run":2,"cards":["2c","3c","4c","6d"]}},
	    {"payload":{"type":9,"turn":1,"cards":["2c","3c","4c"]}}
	  ]}]}`
	out, err := newParser().Parse("g.json", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []model.BoardCard{
		{Run: 1, Street: model.StreetFlop, Position: 0, Card: "2c"},
		{Run: 1, Street: model.StreetFlop, Position: 1, Card: "3c"},
		{Run: 1, Street: model.StreetFlop, Position: 2, Card: "4c"},
		{Run: 1, Street: model.StreetTurn, Position: 0, Card: "5c"},
		{Run: 2, Street: model.StreetTurn, Position: 0, Card: "6d"},
	}, out.Hands[0].Board)
	assert.Empty(t, out.Hands[0].Actions)
}

func TestGeneratedReplaysParse(t *testing.T) {
	gen := testutil.NewReplayGenerator(7, 6)
	for i := 0; i < 20; i++ {
		out, err := newParser().Parse("gen.json", gen.Replay("gen", 5, time.Unix(1700000000, 0)))
		require.NoError(t, err, "seed %d", gen.Seed())
		for _, h := range out.Hands {
			var sum int64
			for _, s := range h.Seats {
				sum += s.NetGain
			}
			assert.Zero(t, sum)
			for j, a := range h.Actions {
				assert.Equal(t, j, a.Seq)
			}
		}
	}
}
