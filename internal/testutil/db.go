package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"HandSync/internal/config"
	"HandSync/internal/model"
	"HandSync/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NullLogger 丢弃所有输出的 logger
func NullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

// NewTestDB 每个测试一个临时 sqlite 文件，已建表
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := OpenTestDB(t, filepath.Join(t.TempDir(), "poker.db"))
	require.NoError(t, store.Initialize(context.Background(), db))
	return db
}

// OpenTestDB 打开指定路径的 sqlite，不建表
func OpenTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{Driver: store.DriverSQLite, DSN: path, LogLevel: "silent"}, NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })
	return db
}

// Snapshot 全表内容，按主键排序，用于 cmp.Diff 比较两个库
type Snapshot struct {
	Games            []model.Game
	Hands            []model.Hand
	Players          []model.Player
	HandPlayers      []model.HandPlayer
	Events           []model.Event
	CommunityCards   []model.CommunityCard
	HandResults      []snapshotResult
	CanonicalPlayers []model.CanonicalPlayer
	PlayerMappings   []model.PlayerMapping
}

// snapshotResult datatypes.JSON 在不同驱动下格式不同，按字符串比较
type snapshotResult struct {
	model.HandResult
	Combination string
}

func TakeSnapshot(t *testing.T, db *gorm.DB) Snapshot {
	t.Helper()
	var s Snapshot
	require.NoError(t, db.Order("game_id").Find(&s.Games).Error)
	require.NoError(t, db.Order("game_id, hand_id").Find(&s.Hands).Error)
	require.NoError(t, db.Order("player_id").Find(&s.Players).Error)
	require.NoError(t, db.Order("game_id, hand_id, player_id").Find(&s.HandPlayers).Error)
	require.NoError(t, db.Order("game_id, hand_id, seq").Find(&s.Events).Error)
	require.NoError(t, db.Order("game_id, hand_id, run, street, position").Find(&s.CommunityCards).Error)

	var results []model.HandResult
	require.NoError(t, db.Order("game_id, hand_id, result_index").Find(&results).Error)
	for _, r := range results {
		c := string(r.Combination)
		r.Combination = nil
		s.HandResults = append(s.HandResults, snapshotResult{HandResult: r, Combination: c})
	}

	require.NoError(t, db.Order("canonical_id").Find(&s.CanonicalPlayers).Error)
	require.NoError(t, db.Order("raw_player_id, nickname").Find(&s.PlayerMappings).Error)
	return s
}
