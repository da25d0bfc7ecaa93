package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"HandSync/internal/interfaces"
	"HandSync/internal/model"

	"gorm.io/gorm"
)

type ReplayRepository struct {
	db *gorm.DB
}

func NewReplayRepository(db *gorm.DB) interfaces.ReplayRepository {
	return &ReplayRepository{db: db}
}

// SaveReplay 单个文档一个事务：要么全部写入，要么全部回滚。
// 核心层每张表按自然键"不存在则插入"，已存在则比较内容，不一致报 ErrConflictingPayload
func (r *ReplayRepository) SaveReplay(ctx context.Context, replay *model.ParsedReplay) (summary *model.IngestSummary, err error) {
	if err := CheckReplay(replay); err != nil {
		return nil, err
	}
	summary = &model.IngestSummary{Document: replay.Document, GameID: replay.Game.GameID}

	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, r.wrap(replay, "", fmt.Errorf("开启事务失败: %w", tx.Error))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	w := &replayWriter{tx: tx, replay: replay, summary: summary}
	if err := w.write(); err != nil {
		tx.Rollback()
		return nil, r.wrap(replay, "", err)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return nil, r.wrap(replay, "", fmt.Errorf("提交事务失败: %w", err))
	}
	return summary, nil
}

func (r *ReplayRepository) wrap(replay *model.ParsedReplay, handID string, err error) error {
	var ie *model.IngestError
	if errors.As(err, &ie) {
		return err
	}
	return &model.IngestError{Document: replay.Document, GameID: replay.Game.GameID, HandID: handID, Err: err}
}

// CheckReplay 写库前校验整批数据的跨记录不变量
func CheckReplay(replay *model.ParsedReplay) error {
	fail := func(handID string, format string, args ...interface{}) error {
		return &model.IngestError{
			Document: replay.Document,
			GameID:   replay.Game.GameID,
			HandID:   handID,
			Err:      fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrInvariant),
		}
	}
	if replay.Game.GameID == "" {
		return fail("", "缺少 game id")
	}

	hands := make(map[string]bool, len(replay.Hands))
	for _, h := range replay.Hands {
		if h.HandID == "" {
			return fail("", "缺少 hand id")
		}
		if hands[h.HandID] {
			return fail(h.HandID, "同一文档内 hand id 重复")
		}
		hands[h.HandID] = true

		seated := make(map[string]int, len(h.Seats))
		seats := make(map[int]bool, len(h.Seats))
		for _, s := range h.Seats {
			if _, dup := seated[s.PlayerID]; dup {
				return fail(h.HandID, "玩家 %s 重复入座", s.PlayerID)
			}
			if seats[s.Seat] {
				return fail(h.HandID, "座位 %d 重复", s.Seat)
			}
			seated[s.PlayerID] = s.Seat
			seats[s.Seat] = true
		}

		for i, a := range h.Actions {
			if a.Seq != i {
				return fail(h.HandID, "事件序号不连续：位置 %d 的序号为 %d", i, a.Seq)
			}
			if !a.Kind.Valid() {
				return fail(h.HandID, "事件 %d 动作 %q 不在枚举内", i, a.Kind)
			}
			if a.PlayerID != nil {
				seat, ok := seated[*a.PlayerID]
				if !ok {
					return fail(h.HandID, "事件 %d 的玩家 %s 未入座", i, *a.PlayerID)
				}
				if a.Seat != nil && *a.Seat != seat {
					return fail(h.HandID, "事件 %d 的座位 %d 与玩家 %s 不符", i, *a.Seat, *a.PlayerID)
				}
			}
		}

		board := make(map[model.BoardCard]bool, len(h.Board))
		for _, c := range h.Board {
			key := model.BoardCard{Run: c.Run, Street: c.Street, Position: c.Position}
			if board[key] {
				return fail(h.HandID, "公共牌 run=%d %s[%d] 重复", c.Run, c.Street, c.Position)
			}
			board[key] = true
		}

		for i, res := range h.Results {
			if res.Index != i {
				return fail(h.HandID, "结算序号不连续")
			}
			if _, ok := seated[res.PlayerID]; !ok {
				return fail(h.HandID, "结算引用了未入座的玩家 %s", res.PlayerID)
			}
		}
	}
	return nil
}

// replayWriter 事务内逐表写入
type replayWriter struct {
	tx      *gorm.DB
	replay  *model.ParsedReplay
	summary *model.IngestSummary
}

func (w *replayWriter) conflict(handID, format string, args ...interface{}) error {
	return &model.IngestError{
		Document: w.replay.Document,
		GameID:   w.replay.Game.GameID,
		HandID:   handID,
		Err:      fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrConflictingPayload),
	}
}

func (w *replayWriter) write() error {
	// 牌局在第一手牌出现时才建立，没有手牌的文档不写任何行
	if len(w.replay.Hands) == 0 {
		return nil
	}
	// 1. 牌局
	if err := w.saveGame(); err != nil {
		return err
	}
	// 2. 玩家（外键依赖，先于参与记录）
	if err := w.savePlayers(); err != nil {
		return err
	}
	// 3. 每手牌及其子表
	for i := range w.replay.Hands {
		h := &w.replay.Hands[i]
		existed, err := w.saveHand(h)
		if err != nil {
			return err
		}
		if err := w.saveHandPlayers(h, existed); err != nil {
			return err
		}
		if err := w.saveEvents(h, existed); err != nil {
			return err
		}
		if err := w.saveBoard(h, existed); err != nil {
			return err
		}
		if err := w.saveResults(h, existed); err != nil {
			return err
		}
	}
	return nil
}

// saveGame 已存在时只放宽时间范围：开始只提前、结束只推后
func (w *replayWriter) saveGame() error {
	g := w.replay.Game
	var existing model.Game
	err := w.tx.Where("game_id = ?", g.GameID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := model.Game{
			GameID:      g.GameID,
			GeneratedAt: g.GeneratedAt,
			RecordedBy:  optString(g.RecordedBy),
			FromCache:   g.FromCache,
			StartedAt:   g.StartedAt,
			EndedAt:     g.EndedAt,
		}
		if err := w.tx.Create(&row).Error; err != nil {
			return fmt.Errorf("保存Game失败: %w, game_id: %s", err, g.GameID)
		}
		w.summary.CountGame(true)
		return nil
	}
	if err != nil {
		return fmt.Errorf("查询Game失败: %w", err)
	}

	updates := map[string]interface{}{}
	if t := earliestTime(existing.GeneratedAt, g.GeneratedAt); !sameTime(t, existing.GeneratedAt) {
		updates["generated_at"] = t
	}
	if t := earliestTime(existing.StartedAt, g.StartedAt); !sameTime(t, existing.StartedAt) {
		updates["started_at"] = t
	}
	if t := latestTime(existing.EndedAt, g.EndedAt); !sameTime(t, existing.EndedAt) {
		updates["ended_at"] = t
	}
	if g.RecordedBy != "" && (existing.RecordedBy == nil || g.RecordedBy < *existing.RecordedBy) {
		updates["recorded_by"] = g.RecordedBy
	}
	// 只要有一份非缓存导出就记为非缓存
	if existing.FromCache && !g.FromCache {
		updates["from_cache"] = false
	}
	if len(updates) == 0 {
		w.summary.CountGame(false)
		return nil
	}
	if err := w.tx.Model(&model.Game{}).Where("game_id = ?", g.GameID).Updates(updates).Error; err != nil {
		return fmt.Errorf("更新Game失败: %w, game_id: %s", err, g.GameID)
	}
	w.summary.CountGame(true)
	return nil
}

// playerSighting 本文档内某玩家最近一次出现
type playerSighting struct {
	name string
	at   *time.Time
}

// newer 最近一次出现者胜；时间相同按昵称字典序，保证与入库顺序无关
func (s playerSighting) newer(name string, at *time.Time) bool {
	switch {
	case s.at == nil && at == nil:
		return s.name > name
	case at == nil:
		return true
	case s.at == nil:
		return false
	case s.at.Equal(*at):
		return s.name > name
	}
	return s.at.After(*at)
}

func (w *replayWriter) savePlayers() error {
	sightings := make(map[string]playerSighting)
	var order []string
	for _, h := range w.replay.Hands {
		for _, s := range h.Seats {
			cur, ok := sightings[s.PlayerID]
			if !ok {
				order = append(order, s.PlayerID)
				sightings[s.PlayerID] = playerSighting{name: s.ScreenName, at: h.StartedAt}
				continue
			}
			if next := (playerSighting{name: s.ScreenName, at: h.StartedAt}); next.newer(cur.name, cur.at) {
				sightings[s.PlayerID] = next
			}
		}
	}

	for _, id := range order {
		s := sightings[id]
		var existing model.Player
		err := w.tx.Where("player_id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := w.tx.Create(&model.Player{PlayerID: id, ScreenName: s.name, LastSeenAt: s.at}).Error; err != nil {
				return fmt.Errorf("保存Player失败: %w, player_id: %s", err, id)
			}
			w.summary.CountPlayer(true)
			continue
		}
		if err != nil {
			return fmt.Errorf("查询Player失败: %w", err)
		}
		if !s.newer(existing.ScreenName, existing.LastSeenAt) {
			w.summary.CountPlayer(false)
			continue
		}
		if err := w.tx.Model(&model.Player{}).Where("player_id = ?", id).Updates(map[string]interface{}{
			"screen_name":  s.name,
			"last_seen_at": s.at,
		}).Error; err != nil {
			return fmt.Errorf("更新Player失败: %w, player_id: %s", err, id)
		}
		w.summary.CountPlayer(true)
	}
	return nil
}

// saveHand 返回该手牌在本次写入前是否已存在
func (w *replayWriter) saveHand(h *model.ParsedHand) (bool, error) {
	row := handRow(w.replay.Game.GameID, w.replay.Game.RecordedBy, h)
	var existing model.Hand
	err := w.tx.Where("game_id = ? AND hand_id = ?", row.GameID, row.HandID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := w.tx.Create(&row).Error; err != nil {
			return false, fmt.Errorf("保存Hand失败: %w, hand_id: %s", err, row.HandID)
		}
		w.summary.CountHand(true)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询Hand失败: %w", err)
	}
	if !sameHand(existing, row) {
		return true, w.conflict(row.HandID, "手牌基本信息与已入库数据不一致")
	}

	// 导出者视角的输赢：同一导出者必须一致，不同导出者取 id 字典序最小者
	switch {
	case row.PlayerNet == nil:
	case existing.PlayerNet == nil || recorderBefore(row.PlayerNetBy, existing.PlayerNetBy):
		if err := w.tx.Model(&model.Hand{}).
			Where("game_id = ? AND hand_id = ?", row.GameID, row.HandID).
			Updates(map[string]interface{}{"player_net": row.PlayerNet, "player_net_by": row.PlayerNetBy}).Error; err != nil {
			return true, fmt.Errorf("更新Hand失败: %w, hand_id: %s", err, row.HandID)
		}
		w.summary.CountHand(true)
		return true, nil
	case sameString(row.PlayerNetBy, existing.PlayerNetBy) && *row.PlayerNet != *existing.PlayerNet:
		return true, w.conflict(row.HandID, "导出者输赢 %d 与已入库的 %d 不一致", *row.PlayerNet, *existing.PlayerNet)
	}
	w.summary.CountHand(false)
	return true, nil
}

func (w *replayWriter) saveHandPlayers(h *model.ParsedHand, existed bool) error {
	rows := make([]model.HandPlayer, 0, len(h.Seats))
	for _, s := range h.Seats {
		rows = append(rows, handPlayerRow(w.replay.Game.GameID, h.HandID, s))
	}
	var existing []model.HandPlayer
	if err := w.handScope(h).Find(&existing).Error; err != nil {
		return fmt.Errorf("查询HandPlayer失败: %w", err)
	}
	return insertAbsent(w, h.HandID, "参与玩家", existed, rows, existing,
		func(r model.HandPlayer) string { return r.PlayerID },
		sameHandPlayer, w.summary.CountHandPlayer)
}

func (w *replayWriter) saveEvents(h *model.ParsedHand, existed bool) error {
	rows := make([]model.Event, 0, len(h.Actions))
	for _, a := range h.Actions {
		rows = append(rows, eventRow(w.replay.Game.GameID, h.HandID, a))
	}
	var existing []model.Event
	if err := w.handScope(h).Find(&existing).Error; err != nil {
		return fmt.Errorf("查询Event失败: %w", err)
	}
	return insertAbsent(w, h.HandID, "事件", existed, rows, existing,
		func(r model.Event) int { return r.Seq },
		sameEvent, w.summary.CountEvent)
}

func (w *replayWriter) saveBoard(h *model.ParsedHand, existed bool) error {
	type key struct {
		run    int
		street model.Street
		pos    int
	}
	rows := make([]model.CommunityCard, 0, len(h.Board))
	for _, c := range h.Board {
		rows = append(rows, model.CommunityCard{
			GameID: w.replay.Game.GameID, HandID: h.HandID,
			Run: c.Run, Street: c.Street, Position: c.Position, Card: c.Card,
		})
	}
	var existing []model.CommunityCard
	if err := w.handScope(h).Find(&existing).Error; err != nil {
		return fmt.Errorf("查询CommunityCard失败: %w", err)
	}
	return insertAbsent(w, h.HandID, "公共牌", existed, rows, existing,
		func(r model.CommunityCard) key { return key{r.Run, r.Street, r.Position} },
		func(a, b model.CommunityCard) bool { return a.Card == b.Card },
		w.summary.CountCommunityCard)
}

func (w *replayWriter) saveResults(h *model.ParsedHand, existed bool) error {
	rows := make([]model.HandResult, 0, len(h.Results))
	for _, res := range h.Results {
		row, err := resultRow(w.replay.Game.GameID, h.HandID, res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	var existing []model.HandResult
	if err := w.handScope(h).Find(&existing).Error; err != nil {
		return fmt.Errorf("查询HandResult失败: %w", err)
	}
	return insertAbsent(w, h.HandID, "结算", existed, rows, existing,
		func(r model.HandResult) int { return r.ResultIndex },
		sameResult, w.summary.CountResult)
}

func (w *replayWriter) handScope(h *model.ParsedHand) *gorm.DB {
	return w.tx.Where("game_id = ? AND hand_id = ?", w.replay.Game.GameID, h.HandID)
}

// insertAbsent 按自然键比较本次数据与库中已有行。
// 手牌是新的：全部插入。手牌已存在：两边的键集合与内容必须完全一致，
// 多出或缺少任何一行都视为冲突，结果因此与入库顺序无关
func insertAbsent[K comparable, R any](
	w *replayWriter, handID, what string, existed bool,
	rows, existing []R,
	key func(R) K, equal func(a, b R) bool, count func(bool),
) error {
	stored := make(map[K]R, len(existing))
	for _, e := range existing {
		stored[key(e)] = e
	}
	seen := make(map[K]bool, len(rows))
	var fresh []R
	for _, r := range rows {
		k := key(r)
		seen[k] = true
		old, ok := stored[k]
		if !ok {
			if existed {
				return w.conflict(handID, "本次文档的%s %v 不在已入库数据中", what, k)
			}
			fresh = append(fresh, r)
			continue
		}
		if !equal(old, r) {
			return w.conflict(handID, "%s %v 与已入库数据不一致", what, k)
		}
		count(false)
	}
	for k := range stored {
		if !seen[k] {
			return w.conflict(handID, "已入库的%s %v 在本次文档中不存在", what, k)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := w.tx.Create(&fresh).Error; err != nil {
		return fmt.Errorf("保存%s失败: %w, hand_id: %s", what, err, handID)
	}
	for range fresh {
		count(true)
	}
	return nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joinCards(cards []string) *string {
	if len(cards) == 0 {
		return nil
	}
	s := strings.Join(cards, " ")
	return &s
}

// recorderBefore a 优先于 b：有导出者优先于无导出者，其次按字典序
func recorderBefore(a, b *string) bool {
	return a != nil && (b == nil || *a < *b)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func earliestTime(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

func latestTime(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}
