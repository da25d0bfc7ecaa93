package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"HandSync/internal/model"
	"HandSync/internal/store"
	"HandSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)

	require.NoError(t, db.Create(&model.Player{PlayerID: "p-a", ScreenName: "alice"}).Error)
	require.NoError(t, store.Initialize(ctx, db))
	require.NoError(t, store.Initialize(ctx, db))

	counts, err := store.Stats(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Players)
	assert.Zero(t, counts.Games)
	for _, m := range store.Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestInitializeRejectsMismatchedTable(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t, filepath.Join(t.TempDir(), "poker.db"))
	require.NoError(t, db.Exec(`CREATE TABLE games (id INTEGER PRIMARY KEY, label TEXT NOT NULL)`).Error)

	err := store.Initialize(ctx, db)
	require.Error(t, err)
	var se *model.SchemaError
	require.True(t, errors.As(err, &se), err)
	assert.Equal(t, "games", se.Table)
	assert.True(t, model.IsPipelineError(err))
}

func TestInitializeRejectsUnknownRequiredColumn(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Exec(`ALTER TABLE players ADD COLUMN region TEXT NOT NULL DEFAULT 'eu'`).Error)
	// 有默认值的额外列可以接受
	require.NoError(t, store.Initialize(ctx, db))

	require.NoError(t, db.Exec(`DROP TABLE player_mappings`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE player_mappings (raw_player_id TEXT, nickname TEXT, canonical_id TEXT, extra TEXT NOT NULL, PRIMARY KEY (raw_player_id, nickname))`).Error)
	err := store.Initialize(ctx, db)
	var se *model.SchemaError
	require.True(t, errors.As(err, &se), err)
	assert.Equal(t, "player_mappings", se.Table)
	assert.Equal(t, "extra", se.Column)
}

const handResultsDDL = `CREATE TABLE hand_results (
    game_id varchar(64), hand_id varchar(64), result_index int,
    player_id varchar(64) NOT NULL, seat int NOT NULL,
    pot %s NOT NULL DEFAULT 0, amount_won bigint NOT NULL DEFAULT 0,
    description varchar(128), category varchar(32) NOT NULL, hole_cards varchar(32),
    combination JSON, run_number varchar(8), hi_lo varchar(8),
    PRIMARY KEY (game_id, hand_id, result_index))`

func TestInitializeRejectsRetypedColumn(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Exec(`DROP TABLE hand_results`).Error)
	require.NoError(t, db.Exec(fmt.Sprintf(handResultsDDL, "TEXT")).Error)

	err := store.Initialize(ctx, db)
	var se *model.SchemaError
	require.True(t, errors.As(err, &se), err)
	assert.Equal(t, "hand_results", se.Table)
	assert.Equal(t, "pot", se.Column)
}

func TestInitializeRejectsMissingForeignKey(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Exec(`DROP TABLE hand_results`).Error)
	require.NoError(t, db.Exec(fmt.Sprintf(handResultsDDL, "bigint")).Error)

	err := store.Initialize(ctx, db)
	var se *model.SchemaError
	require.True(t, errors.As(err, &se), err)
	assert.Equal(t, "hand_results", se.Table)
	assert.Empty(t, se.Column)
	assert.Contains(t, se.Error(), "外键")
}
