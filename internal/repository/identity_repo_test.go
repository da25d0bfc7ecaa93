package repository

import (
	"context"
	"testing"

	"HandSync/internal/model"
	"HandSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMappingsRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := NewIdentityRepository(db)

	_, err := repo.ApplyMappings(ctx,
		[]model.CanonicalPlayer{{CanonicalID: "alice", DisplayName: "Alice"}},
		[]model.PlayerMapping{{RawPlayerID: "p-a", Nickname: "alice", CanonicalID: "alice"}},
		false)
	require.NoError(t, err)
	before := testutil.TakeSnapshot(t, db)

	// 规范玩家先写入，随后映射违反外键；整个事务必须回滚
	_, err = repo.ApplyMappings(ctx,
		[]model.CanonicalPlayer{{CanonicalID: "alice", DisplayName: "Alicia"}, {CanonicalID: "bob", DisplayName: "Bob"}},
		[]model.PlayerMapping{{RawPlayerID: "p-b", Nickname: "bob", CanonicalID: "ghost"}},
		true)
	require.Error(t, err)

	after := testutil.TakeSnapshot(t, db)
	assert.Equal(t, before.CanonicalPlayers, after.CanonicalPlayers)
	assert.Equal(t, before.PlayerMappings, after.PlayerMappings)
}
