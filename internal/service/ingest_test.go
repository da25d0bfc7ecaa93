package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HandSync/internal/config"
	"HandSync/internal/model"
	"HandSync/internal/service"
	"HandSync/internal/store"
	"HandSync/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newIngest(t *testing.T, db *gorm.DB) *service.IngestService {
	t.Helper()
	svc, err := service.NewIngestService(db, testutil.NullLogger(), config.IngestConfig{})
	require.NoError(t, err)
	return svc
}

func tableCounts(t *testing.T, db *gorm.DB) *store.TableCounts {
	t.Helper()
	c, err := store.Stats(context.Background(), db)
	require.NoError(t, err)
	return c
}

func TestIngestTwoHandScenario(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	dir := t.TempDir()
	path := testutil.WriteReplay(t, dir, "g1.json", testutil.TwoHandReplay("g1"))
	svc := newIngest(t, db)

	first, err := svc.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandGames}, first.Games)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandHands}, first.Hands)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandPlayers}, first.Players)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandHandPlayers}, first.HandPlayers)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandEvents}, first.Events)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandCommunityCards}, first.CommunityCards)
	assert.Equal(t, model.RowCount{Written: testutil.TwoHandResults}, first.Results)
	assert.Zero(t, first.AlreadyPresent())

	counts := tableCounts(t, db)
	assert.EqualValues(t, testutil.TwoHandHands, counts.Hands)
	assert.EqualValues(t, testutil.TwoHandEvents, counts.Events)
	assert.EqualValues(t, testutil.TwoHandCommunityCards, counts.CommunityCards)

	var game model.Game
	require.NoError(t, db.Take(&game, "game_id = ?", "g1").Error)
	require.NotNil(t, game.StartedAt)
	assert.True(t, game.StartedAt.Equal(time.UnixMilli(testutil.TwoHandStart)))
	require.NotNil(t, game.RecordedBy)
	assert.Equal(t, "p-a", *game.RecordedBy)

	var hp model.HandPlayer
	require.NoError(t, db.Take(&hp, "hand_id = ? AND player_id = ?", "g1-h1", "p-b").Error)
	assert.EqualValues(t, -50, hp.NetGain)
	require.NotNil(t, hp.HoleCards)
	assert.Equal(t, "Qs Qc", *hp.HoleCards)

	var result model.HandResult
	require.NoError(t, db.Take(&result, "hand_id = ? AND result_index = 0", "g1-h1").Error)
	assert.Equal(t, model.CategoryPair, result.Category)

	// 再次入库：不写入任何行，已存在数等于首次写入数
	before := testutil.TakeSnapshot(t, db)
	second, err := svc.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, second.Written())
	assert.Equal(t, first.Written(), second.AlreadyPresent())
	if diff := cmp.Diff(before, testutil.TakeSnapshot(t, db)); diff != "" {
		t.Errorf("重复入库改变了数据 (-before +after):\n%s", diff)
	}
}

func TestIngestOrderIndependent(t *testing.T) {
	ctx := context.Background()
	gen := testutil.NewReplayGenerator(20240301, 5)
	start := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	docs := [][]byte{
		gen.Replay("g1", 6, start),
		gen.Replay("g2", 4, start.Add(24*time.Hour)),
		gen.Replay("g3", 5, start.Add(48*time.Hour)),
	}

	ingest := func(order []int) testutil.Snapshot {
		db := testutil.NewTestDB(t)
		svc := newIngest(t, db)
		dir := t.TempDir()
		for _, i := range order {
			path := testutil.WriteReplay(t, dir, fmt.Sprintf("doc%d.json", i), docs[i])
			_, err := svc.IngestFile(ctx, path)
			require.NoError(t, err, "seed %d doc %d", gen.Seed(), i)
		}
		return testutil.TakeSnapshot(t, db)
	}

	forward := ingest([]int{0, 1, 2})
	backward := ingest([]int{2, 1, 0})
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("入库顺序影响了结果 (seed %d, -forward +backward):\n%s", gen.Seed(), diff)
	}
	assert.NotEmpty(t, forward.Players)
}

func TestIngestConflictingPayloadRollsBack(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	dir := t.TempDir()
	svc := newIngest(t, db)

	original := testutil.TwoHandReplay("g1")
	_, err := svc.IngestFile(ctx, testutil.WriteReplay(t, dir, "g1.json", original))
	require.NoError(t, err)
	before := testutil.TakeSnapshot(t, db)

	cases := map[string][]byte{
		"net gain changed": []byte(strings.Replace(string(original), `"netGain": 50`, `"netGain": 60`, 1)),
		"event removed":    []byte(strings.Replace(string(original), `{"at": 1709330460000, "payload": {"type": 11, "seat": 2}},`, "", 1)),
		"blinds changed":   []byte(strings.Replace(string(original), `"bigBlind": 10`, `"bigBlind": 20`, 1)),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, original, doc)
			_, err := svc.IngestFile(ctx, testutil.WriteReplay(t, dir, "conflict.json", doc))
			require.Error(t, err)
			var ie *model.IngestError
			require.True(t, errors.As(err, &ie), err)
			assert.True(t, errors.Is(err, model.ErrConflictingPayload), err)
			assert.Equal(t, "g1", ie.GameID)

			if diff := cmp.Diff(before, testutil.TakeSnapshot(t, db)); diff != "" {
				t.Errorf("冲突后未完全回滚:\n%s", diff)
			}
		})
	}
}

func TestIngestOverlapConflictsInEitherOrder(t *testing.T) {
	ctx := context.Background()
	full := testutil.TwoHandReplay("g1")
	short := []byte(strings.Replace(string(full), `{"at": 1709330460000, "payload": {"type": 11, "seat": 2}},`, "", 1))
	require.NotEqual(t, full, short)

	orders := map[string][2][]byte{
		"full then short": {full, short},
		"short then full": {short, full},
	}
	for name, docs := range orders {
		t.Run(name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			dir := t.TempDir()
			svc := newIngest(t, db)

			_, err := svc.IngestFile(ctx, testutil.WriteReplay(t, dir, "first.json", docs[0]))
			require.NoError(t, err)
			before := testutil.TakeSnapshot(t, db)

			_, err = svc.IngestFile(ctx, testutil.WriteReplay(t, dir, "second.json", docs[1]))
			var ie *model.IngestError
			require.True(t, errors.As(err, &ie), err)
			assert.True(t, errors.Is(err, model.ErrConflictingPayload), err)
			assert.Equal(t, "g1-h2", ie.HandID)

			if diff := cmp.Diff(before, testutil.TakeSnapshot(t, db)); diff != "" {
				t.Errorf("冲突后未完全回滚:\n%s", diff)
			}
		})
	}
}

func TestIngestEmptyDocumentWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	path := testutil.WriteReplay(t, t.TempDir(), "empty.json", []byte(`{"gameId": "g9", "playerId": "p-a", "hands": []}`))

	summary, err := newIngest(t, db).IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, summary.Written())

	counts := tableCounts(t, db)
	assert.Zero(t, counts.Games)
	assert.Zero(t, counts.Players)
}

func TestIngestRecorderFieldsMergeByRecorder(t *testing.T) {
	ctx := context.Background()
	byA := testutil.TwoHandReplay("g1")
	byB := strings.NewReplacer(
		`"playerId": "p-a"`, `"playerId": "p-b"`,
		`"fromCache": false`, `"fromCache": true`,
		`"playerNet": 50,`, `"playerNet": -50,`,
		`"playerNet": 5,`, `"playerNet": -5,`,
	).Replace(string(byA))

	ingest := func(docs ...[]byte) (*gorm.DB, testutil.Snapshot) {
		db := testutil.NewTestDB(t)
		svc := newIngest(t, db)
		dir := t.TempDir()
		for i, doc := range docs {
			_, err := svc.IngestFile(ctx, testutil.WriteReplay(t, dir, fmt.Sprintf("doc%d.json", i), doc))
			require.NoError(t, err)
		}
		return db, testutil.TakeSnapshot(t, db)
	}

	db, forward := ingest(byA, []byte(byB))
	_, backward := ingest([]byte(byB), byA)
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("导出者字段的合并依赖入库顺序 (-forward +backward):\n%s", diff)
	}

	var game model.Game
	require.NoError(t, db.Take(&game, "game_id = ?", "g1").Error)
	assert.False(t, game.FromCache)
	require.NotNil(t, game.RecordedBy)
	assert.Equal(t, "p-a", *game.RecordedBy)

	var hand model.Hand
	require.NoError(t, db.Take(&hand, "game_id = ? AND hand_id = ?", "g1", "g1-h1").Error)
	require.NotNil(t, hand.PlayerNet)
	assert.EqualValues(t, 50, *hand.PlayerNet)
	require.NotNil(t, hand.PlayerNetBy)
	assert.Equal(t, "p-a", *hand.PlayerNetBy)

	// 同一导出者给出不同的输赢是冲突
	changed := strings.Replace(string(byA), `"playerNet": 50,`, `"playerNet": 60,`, 1)
	_, err := newIngest(t, db).IngestFile(ctx, testutil.WriteReplay(t, t.TempDir(), "changed.json", []byte(changed)))
	assert.True(t, errors.Is(err, model.ErrConflictingPayload), err)
}

func TestIngestBatchIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	dir := t.TempDir()
	testutil.WriteReplay(t, dir, "a.json", testutil.TwoHandReplay("g1"))
	testutil.WriteReplay(t, dir, "b.json", []byte(`{"gameId": "broken", "hands": [{"id": "x"}]}`))
	testutil.WriteReplay(t, dir, "c.json", testutil.TwoHandReplay("g2"))
	testutil.WriteReplay(t, dir, "notes.txt", []byte("ignored"))

	res, err := newIngest(t, db).IngestPaths(ctx, dir, filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Succeeded, 2)
	assert.Equal(t, filepath.Join(dir, "a.json"), res.Succeeded[0].Document)
	assert.Equal(t, filepath.Join(dir, "c.json"), res.Succeeded[1].Document)

	require.Len(t, res.Failed, 2)
	var pe *model.ParseError
	var ie *model.IngestError
	batchErr := res.Err()
	require.Error(t, batchErr)
	assert.True(t, errors.As(batchErr, &pe))
	assert.True(t, errors.As(batchErr, &ie))
	assert.True(t, model.IsPipelineError(batchErr))
	for _, f := range res.Failed {
		assert.NotEmpty(t, f.Reason)
	}

	counts := tableCounts(t, db)
	assert.EqualValues(t, 2, counts.Games)
	assert.EqualValues(t, 2*testutil.TwoHandHands, counts.Hands)
}

func TestIngestSchemaErrorAbortsBatch(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t, filepath.Join(t.TempDir(), "poker.db"))
	require.NoError(t, db.Exec(`CREATE TABLE hands (id INTEGER PRIMARY KEY)`).Error)
	dir := t.TempDir()
	testutil.WriteReplay(t, dir, "a.json", testutil.TwoHandReplay("g1"))

	res, err := newIngest(t, db).IngestPaths(ctx, dir)
	require.Error(t, err)
	var se *model.SchemaError
	assert.True(t, errors.As(err, &se))
	assert.Empty(t, res.Succeeded)
}

func TestIngestUnknownFormat(t *testing.T) {
	_, err := service.NewIngestService(testutil.NewTestDB(t), testutil.NullLogger(), config.IngestConfig{Format: "pokerstars"})
	assert.Error(t, err)
}
