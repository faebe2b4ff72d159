package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mistveil/textrpg/server/audit"
	"github.com/mistveil/textrpg/server/game/mission"
	"github.com/mistveil/textrpg/server/game/player"
	mw "github.com/mistveil/textrpg/server/middleware"
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"go.uber.org/zap"
)

// MissionHandler exposes the mission engine over REST.
type MissionHandler struct {
	engine  *mission.Engine
	svc     *mission.Service
	players *player.Service
	locks   *player.LockManager
	audit   *audit.Service
	logger  *zap.Logger
}

// NewMissionHandler creates a MissionHandler.
func NewMissionHandler(engine *mission.Engine, svc *mission.Service, players *player.Service, locks *player.LockManager, auditSvc *audit.Service, logger *zap.Logger) *MissionHandler {
	return &MissionHandler{
		engine:  engine,
		svc:     svc,
		players: players,
		locks:   locks,
		audit:   auditSvc,
		logger:  logger,
	}
}

// playerOf resolves the authenticated account's player, writing the error
// response itself when resolution fails.
func (h *MissionHandler) playerOf(c *gin.Context) *model.Player {
	accountID := mw.GetAccountID(c)
	if accountID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	p, err := h.players.ByAccount(c.Request.Context(), accountID)
	if errors.Is(err, player.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no player character"})
		return nil
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil
	}
	return p
}

// List handles GET /api/missions.
func (h *MissionHandler) List(c *gin.Context) {
	p := h.playerOf(c)
	if p == nil {
		return
	}
	slots, daily, err := h.svc.ActiveMissions(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"missions": slots,
		"daily":    daily,
	})
}

// Status handles GET /api/missions/status.
func (h *MissionHandler) Status(c *gin.Context) {
	p := h.playerOf(c)
	if p == nil {
		return
	}
	status, err := h.engine.Status(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, status)
}

type giveMissionRequest struct {
	MissionID  string `json:"mission_id" binding:"required"`
	Difficulty int    `json:"difficulty" binding:"min=0,max=2"`
}

// Give handles POST /api/missions/give.
func (h *MissionHandler) Give(c *gin.Context) {
	var req giveMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := h.playerOf(c)
	if p == nil {
		return
	}

	unlock := h.locks.Lock(p.ID)
	defer unlock()

	slot, err := h.svc.GiveMission(c.Request.Context(), p, req.MissionID, resource.Difficulty(req.Difficulty))
	switch {
	case errors.Is(err, mission.ErrUnknownMission):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown mission"})
		return
	case errors.Is(err, mission.ErrNoFreeSlot):
		c.JSON(http.StatusConflict, gin.H{"error": "no free mission slot"})
		return
	case errors.Is(err, mission.ErrMissionAlreadyHeld):
		c.JSON(http.StatusConflict, gin.H{"error": "mission already held"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mission": slot})
}

type eventRequest struct {
	MissionID string                 `json:"mission_id" binding:"required"`
	Count     int                    `json:"count"`
	Set       bool                   `json:"set"`
	Params    map[string]interface{} `json:"params"`
}

// Event handles POST /api/missions/event: one game event run through the
// engine for the authenticated player.
func (h *MissionHandler) Event(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := h.playerOf(c)
	if p == nil {
		return
	}

	unlock := h.locks.Lock(p.ID)
	defer unlock()

	sink := &mission.Sink{}
	p, err := h.engine.Update(c.Request.Context(), p, sink, mission.Event{
		MissionID: req.MissionID,
		Count:     req.Count,
		Set:       req.Set,
		Params:    req.Params,
	})
	if err != nil {
		h.logger.Error("mission update failed",
			zap.Int64("player_id", p.ID),
			zap.String("mission_id", req.MissionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	traceID := mw.GetTraceID(c)
	for _, done := range sink.Completed() {
		h.audit.Log(audit.Entry{
			TraceID:   traceID,
			PlayerID:  p.ID,
			MissionID: done.MissionID,
			Action:    audit.ActionCompleted,
			Detail:    done,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"player":        p,
		"notifications": sink.Notifications(),
	})
}
