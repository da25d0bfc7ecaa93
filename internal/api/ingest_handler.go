package api

import (
	"net/http"
	"sync"

	"HandSync/internal/config"
	"HandSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IngestHandler 触发一次回放目录入库。存储只允许单写者，同一时间只跑一个批次
type IngestHandler struct {
	ingest *service.IngestService
	rawDir string
	logger *logrus.Logger
	mu     sync.Mutex
}

func NewIngestHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) (*IngestHandler, error) {
	svc, err := service.NewIngestService(db, logger, cfg.Ingest)
	if err != nil {
		return nil, err
	}
	return &IngestHandler{ingest: svc, rawDir: cfg.Ingest.RawDir, logger: logger}, nil
}

// IngestRawDir 入库配置中的回放目录
// @Summary 入库回放目录
// @Success 200 {object} service.BatchResult
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/ingest [post]
func (h *IngestHandler) IngestRawDir(c *gin.Context) {
	if !h.mu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "已有入库任务在运行"})
		return
	}
	defer h.mu.Unlock()

	res, err := h.ingest.IngestDir(c.Request.Context(), h.rawDir)
	if err != nil {
		h.logger.Errorf("入库 %s 失败: %v", h.rawDir, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"run_id": res.RunID,
		})
		return
	}

	status := http.StatusOK
	if len(res.Failed) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, res)
}
