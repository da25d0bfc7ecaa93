package repository

import (
	"context"
	"fmt"

	"HandSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityRepository 增强层仓储：只写 canonical_players / player_mappings，核心层只读
type IdentityRepository interface {
	// ApplyMappings 一个事务内按自然键 upsert；prune 时删除本次未出现的行
	ApplyMappings(ctx context.Context, players []model.CanonicalPlayer, mappings []model.PlayerMapping, prune bool) (*ApplyResult, error)
	// LoadMappings 读出已持久化的增强层
	LoadMappings(ctx context.Context) ([]model.CanonicalPlayer, []model.PlayerMapping, error)
	// ListUnmappedPlayers 没有任何映射行的原始玩家，按手数倒序、id 升序
	ListUnmappedPlayers(ctx context.Context) ([]RawPlayerView, error)
	// ListUnmappedAliases 参与记录中出现、但没有精确映射的 (原始 id, 昵称)
	ListUnmappedAliases(ctx context.Context) ([]AliasView, error)
	// ListRawPlayers 全部原始玩家（导出模板用）
	ListRawPlayers(ctx context.Context) ([]RawPlayerView, error)
}

// ApplyResult 映射写入统计
type ApplyResult struct {
	CanonicalPlayers int `json:"canonical_players"`
	Mappings         int `json:"mappings"`
	PrunedPlayers    int `json:"pruned_players"`
	PrunedMappings   int `json:"pruned_mappings"`
}

// RawPlayerView 原始玩家及其参与手数
type RawPlayerView struct {
	PlayerID    string `json:"player_id"`
	ScreenName  string `json:"screen_name"`
	HandsPlayed int64  `json:"hands_played"`
}

// AliasView 一个 (原始 id, 昵称) 组合及其出现手数
type AliasView struct {
	PlayerID    string `json:"player_id"`
	Nickname    string `json:"nickname"`
	HandsPlayed int64  `json:"hands_played"`
}

type identityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) ApplyMappings(ctx context.Context, players []model.CanonicalPlayer, mappings []model.PlayerMapping, prune bool) (*ApplyResult, error) {
	res := &ApplyResult{CanonicalPlayers: len(players), Mappings: len(mappings)}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(players) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "canonical_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
			}).Create(&players).Error; err != nil {
				return fmt.Errorf("保存规范玩家失败: %w", err)
			}
		}
		if len(mappings) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "raw_player_id"}, {Name: "nickname"}},
				DoUpdates: clause.AssignmentColumns([]string{"canonical_id"}),
			}).Create(&mappings).Error; err != nil {
				return fmt.Errorf("保存玩家映射失败: %w", err)
			}
		}
		if !prune {
			return nil
		}

		// 全量同步：先删映射再删规范玩家（外键）
		keep := make(map[model.AliasKey]bool, len(mappings))
		for _, m := range mappings {
			keep[model.AliasKey{RawPlayerID: m.RawPlayerID, Nickname: m.Nickname}] = true
		}
		var stored []model.PlayerMapping
		if err := tx.Find(&stored).Error; err != nil {
			return fmt.Errorf("查询玩家映射失败: %w", err)
		}
		for _, m := range stored {
			if keep[model.AliasKey{RawPlayerID: m.RawPlayerID, Nickname: m.Nickname}] {
				continue
			}
			if err := tx.Where("raw_player_id = ? AND nickname = ?", m.RawPlayerID, m.Nickname).
				Delete(&model.PlayerMapping{}).Error; err != nil {
				return fmt.Errorf("删除玩家映射失败: %w", err)
			}
			res.PrunedMappings++
		}

		ids := make([]string, 0, len(players))
		for _, p := range players {
			ids = append(ids, p.CanonicalID)
		}
		q := tx.Model(&model.CanonicalPlayer{})
		if len(ids) > 0 {
			q = q.Where("canonical_id NOT IN ?", ids)
		} else {
			q = q.Where("1 = 1")
		}
		del := q.Delete(&model.CanonicalPlayer{})
		if del.Error != nil {
			return fmt.Errorf("删除规范玩家失败: %w", del.Error)
		}
		res.PrunedPlayers = int(del.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *identityRepository) LoadMappings(ctx context.Context) ([]model.CanonicalPlayer, []model.PlayerMapping, error) {
	var players []model.CanonicalPlayer
	if err := r.db.WithContext(ctx).Order("canonical_id").Find(&players).Error; err != nil {
		return nil, nil, fmt.Errorf("查询规范玩家失败: %w", err)
	}
	var mappings []model.PlayerMapping
	if err := r.db.WithContext(ctx).Order("raw_player_id, nickname").Find(&mappings).Error; err != nil {
		return nil, nil, fmt.Errorf("查询玩家映射失败: %w", err)
	}
	return players, mappings, nil
}

func (r *identityRepository) ListUnmappedPlayers(ctx context.Context) ([]RawPlayerView, error) {
	var rows []RawPlayerView
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.player_id, p.screen_name, COUNT(hp.hand_id) AS hands_played
		FROM players p
		LEFT JOIN hand_players hp ON hp.player_id = p.player_id
		WHERE NOT EXISTS (SELECT 1 FROM player_mappings pm WHERE pm.raw_player_id = p.player_id)
		GROUP BY p.player_id, p.screen_name
		ORDER BY hands_played DESC, p.player_id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询未映射玩家失败: %w", err)
	}
	return rows, nil
}

func (r *identityRepository) ListUnmappedAliases(ctx context.Context) ([]AliasView, error) {
	var rows []AliasView
	err := r.db.WithContext(ctx).Raw(`
		SELECT hp.player_id, hp.screen_name AS nickname, COUNT(*) AS hands_played
		FROM hand_players hp
		LEFT JOIN player_mappings pm ON pm.raw_player_id = hp.player_id AND pm.nickname = hp.screen_name
		WHERE pm.raw_player_id IS NULL
		GROUP BY hp.player_id, hp.screen_name
		ORDER BY hands_played DESC, hp.player_id, hp.screen_name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询未映射别名失败: %w", err)
	}
	return rows, nil
}

func (r *identityRepository) ListRawPlayers(ctx context.Context) ([]RawPlayerView, error) {
	var rows []RawPlayerView
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.player_id, p.screen_name, COUNT(hp.hand_id) AS hands_played
		FROM players p
		LEFT JOIN hand_players hp ON hp.player_id = p.player_id
		GROUP BY p.player_id, p.screen_name
		ORDER BY hands_played DESC, p.player_id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询原始玩家失败: %w", err)
	}
	return rows, nil
}
