package mission

import (
	"context"

	"github.com/mistveil/textrpg/server/model"
	"go.uber.org/zap"
)

// collectCompleted gathers every mission finished in this update cycle:
// completed non-campaign slots (deleted on collection), the daily mission
// when it was just completed, and the campaign chain when the event-local
// campaign signal fired.
func (e *Engine) collectCompleted(ctx context.Context, player *model.Player, status *model.MissionStatus, ev Event, dailyJustCompleted, campaignJustCompleted bool) ([]CompletedMission, error) {
	slots, err := e.store.SlotsOfPlayer(ctx, player.ID)
	if err != nil {
		return nil, err
	}

	var completed []CompletedMission
	var campaignSlot *model.MissionSlot
	for _, slot := range slots {
		if slot.Campaign {
			campaignSlot = slot
			continue
		}
		if !slot.IsCompleted() {
			continue
		}
		e.logger.Info("mission completed",
			zap.Int64("player_id", player.ID),
			zap.String("mission_id", slot.MissionID),
			zap.Int("objective", slot.Objective))
		if err := e.store.DeleteSlot(ctx, slot); err != nil {
			return nil, err
		}
		done := completedFromSlot(slot, TypeNormal)
		// Normal missions never award gems; only daily and campaign do.
		done.Gems = 0
		completed = append(completed, done)
	}

	if dailyJustCompleted {
		daily, dErr := e.store.GetOrGenerateDaily(ctx)
		if dErr != nil {
			return nil, dErr
		}
		completed = append(completed, e.dailyCompleted(daily))
	}

	campaignDone, err := e.completeCampaignMissions(ctx, player, status, campaignJustCompleted, campaignSlot)
	if err != nil {
		return nil, err
	}
	completed = append(completed, campaignDone...)
	return completed, nil
}

// dailyCompleted builds the DAILY completion entry. Money and points carry
// fixed daily multipliers, applied before the blessing multiplier that
// scales every reward.
func (e *Engine) dailyCompleted(daily *model.DailyMissionRecord) CompletedMission {
	blessing := e.blessing()
	return CompletedMission{
		MissionID:  daily.MissionID,
		Variant:    daily.Variant,
		Objective:  daily.Objective,
		NumberDone: daily.Objective,
		Gems:       int(float64(daily.GemsToWin) * blessing),
		XP:         int(float64(daily.XPToWin) * blessing),
		Money:      int64(float64(daily.MoneyToWin) * e.cfg.DailyMoneyMultiplier * blessing),
		Points:     int64(float64(daily.PointsToWin) * e.cfg.DailyPointsMultiplier * blessing),
		Type:       TypeDaily,
	}
}

type rewardTotals struct {
	Gems   int
	XP     int
	Money  int64
	Points int64
	Pets   []int
}

func sumRewards(completed []CompletedMission) rewardTotals {
	var t rewardTotals
	for _, c := range completed {
		t.Gems += c.Gems
		t.XP += c.XP
		t.Money += c.Money
		t.Points += c.Points
		if c.PetTypeID != 0 {
			t.Pets = append(t.Pets, c.PetTypeID)
		}
	}
	return t
}

// applyRewards applies the aggregated deltas. Gems go first and touch only
// the status row; experience, money and score may re-enter Update through
// the reward applier, so the status row is saved before they run.
func (e *Engine) applyRewards(ctx context.Context, player *model.Player, sink *Sink, status *model.MissionStatus, completed []CompletedMission) (*model.Player, error) {
	totals := sumRewards(completed)

	status.MissionsDoneToday += len(completed)
	status.MissionsDoneWeek += len(completed)
	if e.rewards == nil {
		status.Gems += totals.Gems
		if err := e.store.SaveStatus(ctx, status); err != nil {
			return player, err
		}
		player.Experience += int64(totals.XP)
		player.Money += totals.Money
		player.Score += totals.Points
		return player, nil
	}

	if err := e.rewards.AddGems(ctx, status, totals.Gems); err != nil {
		return player, err
	}
	if err := e.store.SaveStatus(ctx, status); err != nil {
		return player, err
	}

	var err error
	if totals.XP > 0 {
		if player, err = e.rewards.AddExperience(ctx, player, sink, totals.XP); err != nil {
			return player, err
		}
	}
	if totals.Money > 0 {
		if player, err = e.rewards.AddMoney(ctx, player, sink, totals.Money); err != nil {
			return player, err
		}
	}
	if totals.Points > 0 {
		if player, err = e.rewards.AddScore(ctx, player, sink, totals.Points); err != nil {
			return player, err
		}
	}
	for _, pet := range totals.Pets {
		if err = e.rewards.GivePet(ctx, player, pet); err != nil {
			return player, err
		}
	}
	return player, nil
}
