package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mistveil/textrpg/server/config"
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"go.uber.org/zap"
)

var (
	ErrNoFreeSlot         = errors.New("mission: no free mission slot")
	ErrMissionAlreadyHeld = errors.New("mission: player already holds this mission")
)

// Service handles slot assignment and listing. Progress itself goes through
// Engine.Update.
type Service struct {
	store    Store
	res      *resource.Loader
	registry *Registry
	cfg      config.MissionsConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(store Store, res *resource.Loader, reg *Registry, cfg config.MissionsConfig, logger *zap.Logger) *Service {
	if cfg.SlotCount <= 0 {
		cfg.SlotCount = 3
	}
	return &Service{
		store:    store,
		res:      res,
		registry: reg,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ActiveMissions returns the player's slots together with the shared daily
// mission record.
func (s *Service) ActiveMissions(ctx context.Context, playerID int64) ([]*model.MissionSlot, *model.DailyMissionRecord, error) {
	slots, err := s.store.SlotsOfPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	daily, err := s.store.GetOrGenerateDaily(ctx)
	if err != nil {
		return nil, nil, err
	}
	return slots, daily, nil
}

// GiveMission assigns a mission of the given difficulty into a free slot.
// Objective, expiration and rewards come from the static definition; the
// variant comes from the mission's matcher, as does the starting progress.
func (s *Service) GiveMission(ctx context.Context, player *model.Player, missionID string, d resource.Difficulty) (*model.MissionSlot, error) {
	def := s.res.MissionByID(missionID)
	if def == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMission, missionID)
	}

	slots, err := s.store.SlotsOfPlayer(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	held := 0
	for _, slot := range slots {
		if slot.Campaign {
			continue
		}
		if slot.MissionID == missionID {
			return nil, fmt.Errorf("%w: %q", ErrMissionAlreadyHeld, missionID)
		}
		held++
	}
	if held >= s.cfg.SlotCount {
		return nil, ErrNoFreeSlot
	}

	m := s.registry.Resolve(missionID)
	variant := m.GenerateRandomVariant(d, player)
	objective := resource.At(def.Objectives, d)
	expires := s.now().Add(time.Duration(resource.At(def.ExpirationsHours, d)) * time.Hour)

	nd := m.InitialNumberDone(player, variant)
	if nd < 0 {
		nd = 0
	}
	if nd > objective {
		nd = objective
	}

	slot := &model.MissionSlot{
		PlayerID:    player.ID,
		MissionID:   missionID,
		Variant:     variant,
		Objective:   objective,
		NumberDone:  nd,
		GemsToWin:   resource.At(def.Gems, d),
		XPToWin:     resource.At(def.XP, d),
		MoneyToWin:  resource.At(def.Money, d),
		PointsToWin: resource.At(def.Points, d),
		ExpiresAt:   &expires,
	}
	if err := s.store.SaveSlot(ctx, slot); err != nil {
		return nil, err
	}
	s.logger.Info("mission assigned",
		zap.Int64("player_id", player.ID),
		zap.String("mission_id", missionID),
		zap.Int("difficulty", int(d)),
		zap.Int("objective", objective))
	return slot, nil
}

// EnsureCampaignSlot stages the player's current campaign mission if no
// campaign slot exists yet. Returns nil without error when the campaign is
// already finished (progression 0).
func (s *Service) EnsureCampaignSlot(ctx context.Context, player *model.Player) (*model.MissionSlot, error) {
	slots, err := s.store.SlotsOfPlayer(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if slot.Campaign {
			return slot, nil
		}
	}
	status, err := s.store.StatusOfPlayer(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	if status.CampaignProgression == 0 {
		return nil, nil
	}
	list := s.res.CampaignList()
	if status.CampaignProgression < 0 || status.CampaignProgression > len(list) {
		return nil, fmt.Errorf("%w: position %d of %d", ErrCampaignPosition,
			status.CampaignProgression, len(list))
	}
	entry := list[status.CampaignProgression-1]
	m := s.registry.Resolve(entry.MissionID)
	nd := m.InitialNumberDone(player, entry.Variant)
	if nd < 0 {
		nd = 0
	}
	if nd > entry.Objective {
		nd = entry.Objective
	}
	slot := &model.MissionSlot{
		PlayerID:    player.ID,
		MissionID:   entry.MissionID,
		Variant:     entry.Variant,
		Objective:   entry.Objective,
		NumberDone:  nd,
		GemsToWin:   entry.Gems,
		XPToWin:     entry.XP,
		MoneyToWin:  entry.Money,
		PointsToWin: entry.Points,
		Campaign:    true,
	}
	if err := s.store.SaveSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}
