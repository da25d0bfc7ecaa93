package api

import (
	"net/http"
	"strconv"

	"HandSync/internal/model"
	"HandSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatsHandler 报表数据的只读查询接口，每个请求从库里重建玩家映射
type StatsHandler struct {
	aggregation *service.AggregationService
	identity    *service.IdentityService
	minSessions int
	logger      *logrus.Logger
}

// NewStatsHandler minSessions 为排行榜默认门槛，可被 query 参数覆盖
func NewStatsHandler(db *gorm.DB, logger *logrus.Logger, minSessions int) *StatsHandler {
	return &StatsHandler{
		aggregation: service.NewAggregationService(db, logger),
		identity:    service.NewIdentityService(db, logger),
		minSessions: minSessions,
		logger:      logger,
	}
}

// mapping 当前持久化的映射；失败时已写出响应
func (h *StatsHandler) mapping(c *gin.Context) (*model.ResolvedMap, bool) {
	rm, err := h.identity.PersistedMappings(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("加载玩家映射失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return rm, true
}

// Summary 总览
// GET /api/summary
func (h *StatsHandler) Summary(c *gin.Context) {
	sum, err := h.aggregation.Summary(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Leaderboard 排行榜
// GET /api/leaderboard?min_sessions=3
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	minSessions := h.minSessions
	if v := c.Query("min_sessions"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_sessions 必须是非负整数"})
			return
		}
		minSessions = n
	}

	rm, ok := h.mapping(c)
	if !ok {
		return
	}
	entries, err := h.aggregation.Leaderboard(c.Request.Context(), rm, minSessions)
	if err != nil {
		h.logger.WithError(err).Error("Leaderboard failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"min_sessions": minSessions,
		"entries":      entries,
	})
}

// Sessions 累计曲线与每场合计
// GET /api/sessions
func (h *StatsHandler) Sessions(c *gin.Context) {
	rm, ok := h.mapping(c)
	if !ok {
		return
	}
	series, err := h.aggregation.SessionSeries(c.Request.Context(), rm)
	if err != nil {
		h.logger.WithError(err).Error("SessionSeries failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

// Distributions 牌型、动作和底池分布
// GET /api/distributions
func (h *StatsHandler) Distributions(c *gin.Context) {
	ctx := c.Request.Context()
	hands, err := h.aggregation.WinningHands(ctx)
	if err != nil {
		h.logger.WithError(err).Error("WinningHands failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	actions, err := h.aggregation.ActionFrequency(ctx)
	if err != nil {
		h.logger.WithError(err).Error("ActionFrequency failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pots, err := h.aggregation.PotSizes(ctx)
	if err != nil {
		h.logger.WithError(err).Error("PotSizes failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"winning_hands": hands,
		"actions":       actions,
		"pots":          pots,
	})
}
