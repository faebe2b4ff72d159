package mission

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/mistveil/textrpg/server/cache"
	"github.com/mistveil/textrpg/server/config"
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"go.uber.org/zap"
)

// RewardApplier applies aggregated mission rewards to the player aggregate.
// Each method may return a different player instance than the one passed in,
// and may itself re-enter Engine.Update (experience gain can complete a
// level mission, money gain a money mission, and so on).
type RewardApplier interface {
	AddGems(ctx context.Context, status *model.MissionStatus, amount int) error
	AddExperience(ctx context.Context, p *model.Player, sink *Sink, amount int) (*model.Player, error)
	AddMoney(ctx context.Context, p *model.Player, sink *Sink, amount int64) (*model.Player, error)
	AddScore(ctx context.Context, p *model.Player, sink *Sink, amount int64) (*model.Player, error)
	GivePet(ctx context.Context, p *model.Player, petTypeID int) error
}

// PubSub channel carrying completed-mission notifications.
const ChannelCompleted = "missions:completed"

// Engine is the mission progress state machine. Callers must serialize
// Update calls for the same player; the engine performs no locking itself.
type Engine struct {
	store    Store
	registry *Registry
	res      *resource.Loader
	cfg      config.MissionsConfig
	rewards  RewardApplier
	pubsub   cache.PubSub
	blessing func() float64
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates an Engine. The reward applier is attached afterwards via
// SetRewardApplier because applier implementations usually hold a reference
// back to the engine.
func NewEngine(store Store, reg *Registry, res *resource.Loader, cfg config.MissionsConfig, logger *zap.Logger) *Engine {
	if cfg.DailyMoneyMultiplier <= 0 {
		cfg.DailyMoneyMultiplier = 1
	}
	if cfg.DailyPointsMultiplier <= 0 {
		cfg.DailyPointsMultiplier = 1
	}
	return &Engine{
		store:    store,
		registry: reg,
		res:      res,
		cfg:      cfg,
		blessing: func() float64 { return 1 },
		logger:   logger,
		now:      time.Now,
	}
}

// SetRewardApplier attaches the reward applier. Without one, reward deltas
// are applied directly to the player and status fields.
func (e *Engine) SetRewardApplier(r RewardApplier) { e.rewards = r }

// SetPubSub enables publishing completed-mission batches on ChannelCompleted.
func (e *Engine) SetPubSub(ps cache.PubSub) { e.pubsub = ps }

// SetBlessing installs the reward-blessing multiplier source applied to
// daily mission rewards.
func (e *Engine) SetBlessing(f func() float64) {
	if f != nil {
		e.blessing = f
	}
}

// Update processes one mission event for a player: expires stale slots,
// matches the event against held slots and the shared daily mission,
// collects completions, resolves the campaign chain and applies rewards.
//
// The returned player is the authoritative aggregate. Reward application may
// produce a new instance internally; Update copies its fields back onto the
// instance the caller passed in, so the caller's reference stays valid.
func (e *Engine) Update(ctx context.Context, player *model.Player, sink *Sink, ev Event) (*model.Player, error) {
	orig := player
	if ev.Count == 0 {
		ev.Count = 1
	}
	now := e.now()

	slots, err := e.store.SlotsOfPlayer(ctx, player.ID)
	if err != nil {
		return player, err
	}
	status, err := e.store.StatusOfPlayer(ctx, player.ID)
	if err != nil {
		return player, err
	}

	// Step 1: expire stale slots. Campaign slots never expire.
	kept, err := e.expireSlots(ctx, player, sink, slots, now)
	if err != nil {
		return player, err
	}

	// Step 2: match the event against held slots. campaignJustCompleted is
	// the event-local signal gating the campaign chain: it is set only when
	// this very event pushed the campaign slot over its objective. Campaign
	// resolution must never be inferred from slot state, or a recursive
	// reward-triggered Update would mistake ambient state for a completion.
	campaignJustCompleted := false
	for _, slot := range kept {
		if slot.MissionID != ev.MissionID {
			continue
		}
		becameCampaignDone, matchErr := e.matchSlot(ctx, slot, ev)
		if matchErr != nil {
			return player, matchErr
		}
		if becameCampaignDone {
			campaignJustCompleted = true
		}
	}

	// Step 3: match the shared daily mission, unless completion is already
	// sticky for today.
	player, status, dailyJustCompleted, err := e.matchDaily(ctx, player, sink, status, ev, now)
	if err != nil {
		return player, err
	}

	// Step 4: collect completions. Slots are re-read because the daily
	// streak resolution above may have re-entered Update.
	completed, err := e.collectCompleted(ctx, player, status, ev, dailyJustCompleted, campaignJustCompleted)
	if err != nil {
		return player, err
	}

	// Step 5: apply aggregated rewards and persist the player.
	if len(completed) > 0 {
		player, err = e.applyRewards(ctx, player, sink, status, completed)
		if err != nil {
			return player, err
		}
		sink.Push(Notification{Kind: KindMissionsCompleted, PlayerID: player.ID, Completed: completed})
		e.publishCompleted(ctx, player.ID, completed)
	}
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return player, err
	}

	// Callers keep using the reference they passed in; fold any new
	// aggregate instance produced by reward application back onto it.
	if player != orig {
		*orig = *player
		player = orig
	}
	return player, nil
}

// Status returns the player's mission status row, creating it on first use.
func (e *Engine) Status(ctx context.Context, playerID int64) (*model.MissionStatus, error) {
	return e.store.StatusOfPlayer(ctx, playerID)
}

func (e *Engine) expireSlots(ctx context.Context, player *model.Player, sink *Sink, slots []*model.MissionSlot, now time.Time) ([]*model.MissionSlot, error) {
	var kept []*model.MissionSlot
	var expired []ExpiredMission
	for _, slot := range slots {
		if !slot.IsExpired(now) {
			kept = append(kept, slot)
			continue
		}
		if err := e.store.DeleteSlot(ctx, slot); err != nil {
			return nil, err
		}
		e.logger.Info("mission expired",
			zap.Int64("player_id", player.ID),
			zap.String("mission_id", slot.MissionID))
		expired = append(expired, ExpiredMission{
			MissionID: slot.MissionID,
			Variant:   slot.Variant,
			Objective: slot.Objective,
		})
	}
	if len(expired) > 0 {
		sink.Push(Notification{Kind: KindMissionsExpired, PlayerID: player.ID, Expired: expired})
		if err := e.store.SavePlayer(ctx, player); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// matchSlot applies one event to one slot whose mission id already matched.
// It returns true when the slot is the campaign slot and this event just
// completed it.
func (e *Engine) matchSlot(ctx context.Context, slot *model.MissionSlot, ev Event) (bool, error) {
	m := e.registry.Resolve(slot.MissionID)
	wasCompleted := slot.IsCompleted()
	match := m.ParamsMatch(slot.Variant, ev.Params, slot.SaveBlob)

	dirty := false
	becameCampaignDone := false
	if match && !wasCompleted {
		next := slot.NumberDone + ev.Count
		if ev.Set {
			next = ev.Count
		}
		if next > slot.Objective {
			next = slot.Objective
		}
		// Progress never decreases, set mode included.
		if next > slot.NumberDone {
			slot.NumberDone = next
			dirty = true
		}
		if slot.Campaign && slot.IsCompleted() {
			becameCampaignDone = true
		}
	}

	// Blob bookkeeping is independent of progress: a rejected event still
	// refreshes the blob for matchers that track all observed values.
	if !wasCompleted && (match || m.AlwaysUpdateBlob()) {
		newBlob := m.UpdateSaveBlob(slot.Variant, slot.SaveBlob, ev.Params)
		if !bytes.Equal(newBlob, slot.SaveBlob) {
			slot.SaveBlob = newBlob
			dirty = true
		}
	}

	if dirty {
		if err := e.store.SaveSlot(ctx, slot); err != nil {
			return false, err
		}
	}
	return becameCampaignDone, nil
}

func (e *Engine) publishCompleted(ctx context.Context, playerID int64, completed []CompletedMission) {
	if e.pubsub == nil {
		return
	}
	payload, err := json.Marshal(Notification{
		Kind:      KindMissionsCompleted,
		PlayerID:  playerID,
		Completed: completed,
	})
	if err != nil {
		return
	}
	if err := e.pubsub.Publish(ctx, ChannelCompleted, string(payload)); err != nil {
		e.logger.Warn("mission completion publish failed", zap.Error(err))
	}
}
