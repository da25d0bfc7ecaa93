package repository

import (
	"context"
	"fmt"
	"time"

	"HandSync/internal/model"

	"gorm.io/gorm"
)

// StatsRepository 报表用的只读查询；身份解析在 service 层完成，这里只取原始数据
type StatsRepository interface {
	// ListParticipation 每个玩家每手牌一行，附带牌局/手牌的时间信息
	ListParticipation(ctx context.Context) ([]ParticipationRow, error)
	// ListPlayers 原始玩家（最近昵称）
	ListPlayers(ctx context.Context) ([]model.Player, error)
	// CountResultCategories 结算记录按牌型计数
	CountResultCategories(ctx context.Context) ([]model.CountRow, error)
	// CountResultDescriptions 结算记录按描述计数（无描述的不计）
	CountResultDescriptions(ctx context.Context) ([]model.CountRow, error)
	// CountActions 事件按动作计数
	CountActions(ctx context.Context) ([]model.CountRow, error)
	// ListPotSizes 每手牌最大底池
	ListPotSizes(ctx context.Context) ([]model.PotRow, error)
}

// ParticipationRow 参与记录视图
type ParticipationRow struct {
	GameID        string
	GameStartedAt *time.Time
	HandID        string
	HandNumber    int
	HandStartedAt *time.Time
	PlayerID      string
	ScreenName    string
	Stack         int64
	NetGain       int64
	ShowedCards   bool
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository db 可以是事务，报表的所有查询共用同一快照
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) ListParticipation(ctx context.Context) ([]ParticipationRow, error) {
	var rows []ParticipationRow
	err := r.db.WithContext(ctx).
		Table("hand_players AS hp").
		Select(`hp.game_id, g.started_at AS game_started_at, hp.hand_id, h.hand_number,
			h.started_at AS hand_started_at, hp.player_id, hp.screen_name, hp.stack, hp.net_gain, hp.showed_cards`).
		Joins("JOIN hands h ON h.game_id = hp.game_id AND h.hand_id = hp.hand_id").
		Joins("JOIN games g ON g.game_id = hp.game_id").
		Order("hp.game_id, h.hand_number, hp.hand_id, hp.player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询参与记录失败: %w", err)
	}
	return rows, nil
}

func (r *statsRepository) ListPlayers(ctx context.Context) ([]model.Player, error) {
	var players []model.Player
	if err := r.db.WithContext(ctx).Order("player_id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("查询玩家失败: %w", err)
	}
	return players, nil
}

func (r *statsRepository) CountResultCategories(ctx context.Context) ([]model.CountRow, error) {
	var rows []model.CountRow
	err := r.db.WithContext(ctx).Model(&model.HandResult{}).
		Select("category AS label, COUNT(*) AS count").
		Group("category").
		Order("count DESC, label").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计牌型失败: %w", err)
	}
	return rows, nil
}

func (r *statsRepository) CountResultDescriptions(ctx context.Context) ([]model.CountRow, error) {
	var rows []model.CountRow
	err := r.db.WithContext(ctx).Model(&model.HandResult{}).
		Select("description AS label, COUNT(*) AS count").
		Where("description IS NOT NULL AND description <> ''").
		Group("description").
		Order("count DESC, label").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计牌型描述失败: %w", err)
	}
	return rows, nil
}

func (r *statsRepository) CountActions(ctx context.Context) ([]model.CountRow, error) {
	var rows []model.CountRow
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Select("action AS label, COUNT(*) AS count").
		Group("action").
		Order("count DESC, label").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计动作失败: %w", err)
	}
	return rows, nil
}

func (r *statsRepository) ListPotSizes(ctx context.Context) ([]model.PotRow, error) {
	var rows []model.PotRow
	err := r.db.WithContext(ctx).
		Table("hands AS h").
		Select("h.game_id, h.hand_id, h.hand_number, h.started_at, MAX(r.pot) AS pot").
		Joins("JOIN hand_results r ON r.game_id = h.game_id AND r.hand_id = h.hand_id").
		Group("h.game_id, h.hand_id, h.hand_number, h.started_at").
		Order("h.game_id, h.hand_number, h.hand_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询底池失败: %w", err)
	}
	return rows, nil
}
