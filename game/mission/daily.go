package mission

import (
	"bytes"
	"context"
	"time"

	"github.com/mistveil/textrpg/server/model"
	"go.uber.org/zap"
)

// matchDaily runs step 3 of the update cycle: apply the event to the shared
// daily mission unless the player's completion is already sticky for today.
// It returns the authoritative player (daily completion re-enters Update for
// the streak mission) and the refreshed status.
func (e *Engine) matchDaily(ctx context.Context, player *model.Player, sink *Sink, status *model.MissionStatus, ev Event, now time.Time) (*model.Player, *model.MissionStatus, bool, error) {
	if status.CompletedDailyOn(now) {
		return player, status, false, nil
	}

	daily, err := e.store.GetOrGenerateDaily(ctx)
	if err != nil {
		return player, status, false, err
	}
	if daily.MissionID != ev.MissionID {
		return player, status, false, nil
	}

	m := e.registry.Resolve(daily.MissionID)
	// Progress accrued against an earlier day's mission is stale.
	if status.DailyDay != daily.Day {
		status.DailyDay = daily.Day
		status.DailyNumberDone = 0
		status.DailyBlob = nil
	}

	if !m.ParamsMatch(daily.Variant, ev.Params, status.DailyBlob) {
		return player, status, false, nil
	}

	dirty := false
	newBlob := m.UpdateSaveBlob(daily.Variant, status.DailyBlob, ev.Params)
	if !bytes.Equal(newBlob, status.DailyBlob) {
		status.DailyBlob = newBlob
		dirty = true
	}
	next := status.DailyNumberDone + ev.Count
	if ev.Set {
		next = ev.Count
	}
	if next > daily.Objective {
		next = daily.Objective
	}
	if next > status.DailyNumberDone {
		status.DailyNumberDone = next
		dirty = true
	}
	if dirty {
		if err := e.store.SaveStatus(ctx, status); err != nil {
			return player, status, false, err
		}
	}

	if status.DailyNumberDone < daily.Objective {
		return player, status, false, nil
	}

	// The streak mission inspects the previous completion date, so it must
	// resolve before LastDailyCompletedAt is overwritten with today.
	player, err = e.resolveDailyStreak(ctx, player, sink, status, now)
	if err != nil {
		return player, status, false, err
	}
	// The streak resolution re-entered Update, which may have rewritten the
	// status row; reload before stamping today's completion.
	status, err = e.store.StatusOfPlayer(ctx, player.ID)
	if err != nil {
		return player, status, false, err
	}
	ts := now
	status.LastDailyCompletedAt = &ts
	if err := e.store.SaveStatus(ctx, status); err != nil {
		return player, status, false, err
	}
	e.logger.Info("daily mission completed",
		zap.Int64("player_id", player.ID),
		zap.String("mission_id", daily.MissionID))
	return player, status, true, nil
}

// resolveDailyStreak advances the always-present daily streak mission. A
// streak whose last daily completion is neither yesterday nor today
// (calendar days, not elapsed hours) is broken: the streak slot is reset to
// zero before the usual streak progress event runs.
func (e *Engine) resolveDailyStreak(ctx context.Context, player *model.Player, sink *Sink, status *model.MissionStatus, now time.Time) (*model.Player, error) {
	slots, err := e.store.SlotsOfPlayer(ctx, player.ID)
	if err != nil {
		return player, err
	}
	var streak *model.MissionSlot
	for _, s := range slots {
		if !s.Campaign && s.MissionID == MissionDailyStreak {
			streak = s
			break
		}
	}

	// With no streak slot, or one that already hit its objective, the plain
	// update below lets the assignment flow hand out a replacement.
	if streak != nil && !streak.IsCompleted() {
		last := status.LastDailyCompletedAt
		yesterday := now.AddDate(0, 0, -1)
		intact := last != nil &&
			(model.SameCalendarDay(*last, now) || model.SameCalendarDay(*last, yesterday))
		if !intact {
			streak.NumberDone = 0
			if err := e.store.SaveSlot(ctx, streak); err != nil {
				return player, err
			}
			e.logger.Info("daily streak broken",
				zap.Int64("player_id", player.ID))
		}
	}

	return e.Update(ctx, player, sink, Event{MissionID: MissionDailyStreak})
}
