package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mistveil/textrpg/server/game/mission"
	"github.com/mistveil/textrpg/server/game/player"
	mw "github.com/mistveil/textrpg/server/middleware"
	"go.uber.org/zap"
)

// PlayerHandler handles player character REST endpoints.
type PlayerHandler struct {
	players  *player.Service
	missions *mission.Service
	logger   *zap.Logger
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(players *player.Service, missions *mission.Service, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{players: players, missions: missions, logger: logger}
}

type createPlayerRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
}

// Create handles POST /api/players: creates the account's character and
// stages its first campaign mission.
func (h *PlayerHandler) Create(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accountID := mw.GetAccountID(c)
	if accountID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if _, err := h.players.ByAccount(c.Request.Context(), accountID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "character already exists"})
		return
	} else if !errors.Is(err, player.ErrPlayerNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	p, err := h.players.Create(c.Request.Context(), accountID, req.Name)
	if err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if _, err := h.missions.EnsureCampaignSlot(c.Request.Context(), p); err != nil {
		h.logger.Error("campaign staging failed",
			zap.Int64("player_id", p.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"player": p})
}

// Me handles GET /api/players/me.
func (h *PlayerHandler) Me(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	if accountID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	p, err := h.players.ByAccount(c.Request.Context(), accountID)
	if errors.Is(err, player.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no player character"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	pets, err := h.players.Pets(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": p, "pets": pets})
}
