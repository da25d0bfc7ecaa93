package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"HandSync/internal/model"
	"HandSync/internal/repository"
	"HandSync/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AggregationService 只读聚合：排行榜、累计曲线、分布。
// 身份解析用调用方传入的 ResolvedMap，未映射的 (id, 昵称) 按原始身份统计
type AggregationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAggregationService(db *gorm.DB, logger *logrus.Logger) *AggregationService {
	return &AggregationService{db: db, logger: logger}
}

// read 同一个只读事务内执行，保证多条查询看到同一快照
func (s *AggregationService) read(ctx context.Context, fn func(tx *gorm.DB, repo repository.StatsRepository) error) error {
	opts := &sql.TxOptions{ReadOnly: true}
	if s.db.Dialector.Name() == store.DriverPostgres {
		opts.Isolation = sql.LevelRepeatableRead
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, repository.NewStatsRepository(tx))
	}, opts)
}

func (s *AggregationService) Leaderboard(ctx context.Context, rm *model.ResolvedMap, minSessions int) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	err := s.read(ctx, func(_ *gorm.DB, repo repository.StatsRepository) error {
		hands, err := loadResolvedHands(ctx, repo, rm)
		if err != nil {
			return err
		}
		out = leaderboard(hands, minSessions)
		return nil
	})
	return out, err
}

func (s *AggregationService) SessionSeries(ctx context.Context, rm *model.ResolvedMap) (*model.SessionSeries, error) {
	var out *model.SessionSeries
	err := s.read(ctx, func(_ *gorm.DB, repo repository.StatsRepository) error {
		hands, err := loadResolvedHands(ctx, repo, rm)
		if err != nil {
			return err
		}
		out = sessionSeries(hands)
		return nil
	})
	return out, err
}

func (s *AggregationService) WinningHands(ctx context.Context) (*model.WinningHands, error) {
	var out *model.WinningHands
	err := s.read(ctx, func(_ *gorm.DB, repo repository.StatsRepository) error {
		var err error
		out, err = winningHands(ctx, repo)
		return err
	})
	return out, err
}

func (s *AggregationService) ActionFrequency(ctx context.Context) ([]model.CountRow, error) {
	var out []model.CountRow
	err := s.read(ctx, func(_ *gorm.DB, repo repository.StatsRepository) error {
		var err error
		out, err = actionFrequency(ctx, repo)
		return err
	})
	return out, err
}

func (s *AggregationService) PotSizes(ctx context.Context) ([]model.PotRow, error) {
	var out []model.PotRow
	err := s.read(ctx, func(_ *gorm.DB, repo repository.StatsRepository) error {
		var err error
		out, err = potSizes(ctx, repo)
		return err
	})
	return out, err
}

func (s *AggregationService) Summary(ctx context.Context) (*model.Summary, error) {
	var out *model.Summary
	err := s.read(ctx, func(tx *gorm.DB, _ repository.StatsRepository) error {
		var err error
		out, err = summary(ctx, tx)
		return err
	})
	return out, err
}

// BuildReport 在一个快照上生成全部聚合结果
func (s *AggregationService) BuildReport(ctx context.Context, rm *model.ResolvedMap, minSessions int) (*model.Report, error) {
	rep := &model.Report{GeneratedAt: time.Now().UTC(), MinSessions: minSessions}
	err := s.read(ctx, func(tx *gorm.DB, repo repository.StatsRepository) error {
		sum, err := summary(ctx, tx)
		if err != nil {
			return err
		}
		rep.Summary = *sum

		hands, err := loadResolvedHands(ctx, repo, rm)
		if err != nil {
			return err
		}
		rep.Leaderboard = leaderboard(hands, minSessions)
		rep.Sessions = *sessionSeries(hands)

		wh, err := winningHands(ctx, repo)
		if err != nil {
			return err
		}
		rep.WinningHands = *wh

		if rep.Actions, err = actionFrequency(ctx, repo); err != nil {
			return err
		}
		rep.Pots, err = potSizes(ctx, repo)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("生成报表失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"hands":       rep.Summary.Hands,
		"leaderboard": len(rep.Leaderboard),
		"mappings":    rm.Len(),
	}).Info("报表数据已生成")
	return rep, nil
}

// identity 解析后的身份
type identity struct {
	key       string
	name      string
	canonical bool
}

// seatResult 一个身份在一手牌中的结果
type seatResult struct {
	identity
	netGain int64
	showed  bool
}

// resolvedHand 按时间排好序的一手牌
type resolvedHand struct {
	gameID        string
	gameStartedAt *time.Time
	handID        string
	number        int
	startedAt     *time.Time
	seats         []seatResult
}

func loadResolvedHands(ctx context.Context, repo repository.StatsRepository, rm *model.ResolvedMap) ([]resolvedHand, error) {
	players, err := repo.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	latestName := make(map[string]string, len(players))
	for _, p := range players {
		latestName[p.PlayerID] = p.ScreenName
	}

	rows, err := repo.ListParticipation(ctx)
	if err != nil {
		return nil, err
	}

	type handKey struct{ game, hand string }
	index := make(map[handKey]int)
	var hands []resolvedHand
	for _, r := range rows {
		k := handKey{r.GameID, r.HandID}
		i, ok := index[k]
		if !ok {
			i = len(hands)
			index[k] = i
			hands = append(hands, resolvedHand{
				gameID: r.GameID, gameStartedAt: r.GameStartedAt,
				handID: r.HandID, number: r.HandNumber, startedAt: r.HandStartedAt,
			})
		}
		hands[i].seats = append(hands[i].seats, seatResult{
			identity: resolve(rm, r.PlayerID, r.ScreenName, latestName),
			netGain:  r.NetGain,
			showed:   r.ShowedCards,
		})
	}

	sort.SliceStable(hands, func(i, j int) bool {
		a, b := hands[i], hands[j]
		if a.gameID != b.gameID {
			if c := compareTime(a.gameStartedAt, b.gameStartedAt); c != 0 {
				return c < 0
			}
			return a.gameID < b.gameID
		}
		if c := compareTime(a.startedAt, b.startedAt); c != 0 {
			return c < 0
		}
		if a.number != b.number {
			return a.number < b.number
		}
		return a.handID < b.handID
	})
	return hands, nil
}

func resolve(rm *model.ResolvedMap, playerID, nickname string, latestName map[string]string) identity {
	if c, ok := rm.Resolve(playerID, nickname); ok {
		return identity{key: "canonical:" + c.CanonicalID, name: c.DisplayName, canonical: true}
	}
	name := latestName[playerID]
	if name == "" {
		name = nickname
	}
	return identity{key: "raw:" + playerID, name: name}
}

// compareTime 空值排在最后
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

func leaderboard(hands []resolvedHand, minSessions int) []model.LeaderboardEntry {
	entries := make(map[string]*model.LeaderboardEntry)
	sessions := make(map[string]map[string]bool)
	for _, h := range hands {
		// 同一身份可能在一手牌里出现两次（两个原始账号映射到同一人），手数只算一次
		counted := make(map[string]bool, len(h.seats))
		for _, st := range h.seats {
			e, ok := entries[st.key]
			if !ok {
				e = &model.LeaderboardEntry{Key: st.key, Name: st.name, Canonical: st.canonical}
				entries[st.key] = e
				sessions[st.key] = make(map[string]bool)
			}
			e.NetProfit += st.netGain
			if st.showed {
				e.Showdowns++
			}
			sessions[st.key][h.gameID] = true
			if counted[st.key] {
				continue
			}
			counted[st.key] = true
			e.Hands++
		}
		for key := range counted {
			var net int64
			for _, st := range h.seats {
				if st.key == key {
					net += st.netGain
				}
			}
			if net > 0 {
				entries[key].HandsWon++
			}
		}
	}

	out := make([]model.LeaderboardEntry, 0, len(entries))
	for key, e := range entries {
		e.Sessions = len(sessions[key])
		if e.Sessions < minSessions {
			continue
		}
		if e.Hands > 0 {
			e.AvgPerHand = float64(e.NetProfit) / float64(e.Hands)
			e.WinRate = float64(e.HandsWon) * 100 / float64(e.Hands)
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetProfit != out[j].NetProfit {
			return out[i].NetProfit > out[j].NetProfit
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func sessionSeries(hands []resolvedHand) *model.SessionSeries {
	out := &model.SessionSeries{}
	series := make(map[string]*model.PlayerSeries)
	var order []string
	cumulative := make(map[string]int64)
	lastGame := make(map[string]string)

	type sessionKey struct{ key, game string }
	totals := make(map[sessionKey]*model.SessionTotal)
	var totalOrder []sessionKey

	for idx, h := range hands {
		if idx == 0 || hands[idx-1].gameID != h.gameID {
			out.Boundaries = append(out.Boundaries, model.SessionBoundary{GameID: h.gameID, Index: idx, StartedAt: h.gameStartedAt})
		}

		net := make(map[string]int64, len(h.seats))
		var keys []string
		names := make(map[string]string, len(h.seats))
		for _, st := range h.seats {
			if _, ok := net[st.key]; !ok {
				keys = append(keys, st.key)
			}
			net[st.key] += st.netGain
			names[st.key] = st.name
		}
		sort.Strings(keys)

		for _, key := range keys {
			ps, ok := series[key]
			if !ok {
				ps = &model.PlayerSeries{Key: key, Name: names[key]}
				series[key] = ps
				order = append(order, key)
			}
			cumulative[key] += net[key]
			start := lastGame[key] != h.gameID
			lastGame[key] = h.gameID
			ps.Points = append(ps.Points, model.SeriesPoint{
				Index: idx, GameID: h.gameID, HandID: h.handID,
				NetGain: net[key], Cumulative: cumulative[key], SessionStart: start,
			})

			sk := sessionKey{key, h.gameID}
			t, ok := totals[sk]
			if !ok {
				t = &model.SessionTotal{Key: key, Name: names[key], GameID: h.gameID, StartedAt: h.gameStartedAt}
				totals[sk] = t
				totalOrder = append(totalOrder, sk)
			}
			t.Hands++
			t.Net += net[key]
		}
	}

	sort.Strings(order)
	for _, key := range order {
		out.Series = append(out.Series, *series[key])
	}
	for _, sk := range totalOrder {
		out.Sessions = append(out.Sessions, *totals[sk])
	}
	return out
}

func winningHands(ctx context.Context, repo repository.StatsRepository) (*model.WinningHands, error) {
	cats, err := repo.CountResultCategories(ctx)
	if err != nil {
		return nil, err
	}
	descs, err := repo.CountResultDescriptions(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(model.HandCategories)+1)
	labels = append(labels, string(model.CategoryUncontested))
	for _, c := range model.HandCategories {
		labels = append(labels, string(c))
	}
	return &model.WinningHands{Categories: fillCounts(labels, cats), Descriptions: descs}, nil
}

func actionFrequency(ctx context.Context, repo repository.StatsRepository) ([]model.CountRow, error) {
	rows, err := repo.CountActions(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(model.ActionKinds))
	for _, k := range model.ActionKinds {
		labels = append(labels, string(k))
	}
	return fillCounts(labels, rows), nil
}

// fillCounts 按固定标签顺序输出，缺失的补 0；不认识的标签追加在后面
func fillCounts(labels []string, rows []model.CountRow) []model.CountRow {
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Label] += r.Count
	}
	out := make([]model.CountRow, 0, len(labels))
	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[l] = true
		out = append(out, model.CountRow{Label: l, Count: counts[l]})
	}
	for _, r := range rows {
		if !known[r.Label] {
			out = append(out, r)
		}
	}
	return out
}

func potSizes(ctx context.Context, repo repository.StatsRepository) ([]model.PotRow, error) {
	rows, err := repo.ListPotSizes(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := compareTime(rows[i].StartedAt, rows[j].StartedAt); c != 0 {
			return c < 0
		}
		if rows[i].GameID != rows[j].GameID {
			return rows[i].GameID < rows[j].GameID
		}
		return rows[i].HandNumber < rows[j].HandNumber
	})
	return rows, nil
}

func summary(ctx context.Context, tx *gorm.DB) (*model.Summary, error) {
	counts, err := store.Stats(ctx, tx)
	if err != nil {
		return nil, err
	}
	out := &model.Summary{
		Games:            counts.Games,
		Hands:            counts.Hands,
		RawPlayers:       counts.Players,
		CanonicalPlayers: counts.CanonicalPlayers,
		Events:           counts.Events,
	}
	var games []model.Game
	if err := tx.WithContext(ctx).Select("game_id", "started_at", "ended_at").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("查询牌局时间失败: %w", err)
	}
	for _, g := range games {
		if g.StartedAt != nil && (out.FirstGameAt == nil || g.StartedAt.Before(*out.FirstGameAt)) {
			out.FirstGameAt = g.StartedAt
		}
		last := g.EndedAt
		if last == nil {
			last = g.StartedAt
		}
		if last != nil && (out.LastGameAt == nil || last.After(*out.LastGameAt)) {
			out.LastGameAt = last
		}
	}
	return out, nil
}
