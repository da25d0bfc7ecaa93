package api

import (
	"net/http"
	"strconv"

	"HandSync/internal/repository"
	"HandSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IdentityHandler 玩家映射相关查询
type IdentityHandler struct {
	identity *service.IdentityService
	logger   *logrus.Logger
}

func NewIdentityHandler(db *gorm.DB, logger *logrus.Logger) *IdentityHandler {
	return &IdentityHandler{
		identity: service.NewIdentityService(db, logger),
		logger:   logger,
	}
}

// Unmapped 未映射的原始玩家；aliases=true 时返回未映射的 (id, 昵称) 组合
// GET /api/unmapped?aliases=false
func (h *IdentityHandler) Unmapped(c *gin.Context) {
	aliases, _ := strconv.ParseBool(c.DefaultQuery("aliases", "false"))
	ctx := c.Request.Context()

	if aliases {
		rows, err := h.identity.UnmappedAliases(ctx)
		if err != nil {
			h.logger.WithError(err).Error("UnmappedAliases failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []repository.AliasView{}
		}
		c.JSON(http.StatusOK, gin.H{"aliases": rows, "total": len(rows)})
		return
	}

	rows, err := h.identity.UnmappedPlayers(ctx)
	if err != nil {
		h.logger.WithError(err).Error("UnmappedPlayers failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []repository.RawPlayerView{}
	}
	c.JSON(http.StatusOK, gin.H{"players": rows, "total": len(rows)})
}

// Mappings 已保存的规范玩家及其别名
// GET /api/mappings
func (h *IdentityHandler) Mappings(c *gin.Context) {
	rm, err := h.identity.PersistedMappings(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("PersistedMappings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	type alias struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
	}
	type entry struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Aliases []alias `json:"aliases"`
	}
	players := rm.CanonicalPlayers()
	out := make([]entry, 0, len(players))
	for _, p := range players {
		e := entry{ID: p.CanonicalID, Name: p.DisplayName, Aliases: []alias{}}
		for _, a := range rm.AliasesOf(p.CanonicalID) {
			e.Aliases = append(e.Aliases, alias{ID: a.RawPlayerID, Nickname: a.Nickname})
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, gin.H{"canonical_players": out})
}
