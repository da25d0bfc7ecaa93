package api

import (
	"fmt"

	"HandSync/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter 注册全部路由；serve 命令与测试共用
func NewRouter(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) (*gin.Engine, error) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)

	stats := NewStatsHandler(db, logger, cfg.Report.MinSessions)
	identity := NewIdentityHandler(db, logger)
	ingest, err := NewIngestHandler(db, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化入库接口失败: %w", err)
	}

	g := r.Group("/api")
	g.GET("/summary", stats.Summary)
	g.GET("/leaderboard", stats.Leaderboard)
	g.GET("/sessions", stats.Sessions)
	g.GET("/distributions", stats.Distributions)
	g.GET("/unmapped", identity.Unmapped)
	g.GET("/mappings", identity.Mappings)
	g.POST("/ingest", ingest.IngestRawDir)
	return r, nil
}

// requestLogger 用 logrus 记录请求，替代 gin 默认的 stdout 日志
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("http request")
	}
}
