package mission

import (
	"context"
	"fmt"

	"github.com/mistveil/textrpg/server/model"
	"go.uber.org/zap"
)

// completeCampaignMissions walks the static campaign list from the player's
// current position, completing the just-finished mission and every
// subsequent mission already satisfied by the player's current state.
//
// completedCampaign is the event-local signal from step 2 of this very
// update cycle, never recomputed from slot state. When it is false this
// function performs zero side effects and returns an empty list, even if the
// campaign slot's progress currently equals its objective: a recursive
// reward-application call must not be misread as a campaign completion (and
// must not restage the slot, wiping legitimate progress).
func (e *Engine) completeCampaignMissions(ctx context.Context, player *model.Player, status *model.MissionStatus, completedCampaign bool, slot *model.MissionSlot) ([]CompletedMission, error) {
	if !completedCampaign {
		return nil, nil
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: campaign completed without a campaign slot", ErrCampaignPosition)
	}
	list := e.res.CampaignList()
	if status.CampaignProgression <= 0 || status.CampaignProgression > len(list) {
		return nil, fmt.Errorf("%w: position %d of %d", ErrCampaignPosition,
			status.CampaignProgression, len(list))
	}

	var out []CompletedMission
	finished := false
	for {
		pos := status.CampaignProgression
		entry := list[pos-1]

		done := completedFromSlot(slot, TypeCampaign)
		done.PetTypeID = entry.PetTypeID
		out = append(out, done)
		status.CampaignBlob = markCampaignDone(status.CampaignBlob, pos-1, len(list))
		e.logger.Info("campaign mission completed",
			zap.Int64("player_id", player.ID),
			zap.String("mission_id", slot.MissionID),
			zap.Int("position", pos))

		if pos == len(list) {
			status.CampaignProgression = 0
			finished = true
			break
		}
		status.CampaignProgression = pos + 1

		// Stage the next mission into the same slot row. Its starting
		// progress comes from the player's current state, so it may already
		// be satisfied — that is the chain rule.
		next := list[pos]
		m := e.registry.Resolve(next.MissionID)
		initial := m.InitialNumberDone(player, next.Variant)
		slot.MissionID = next.MissionID
		slot.Variant = next.Variant
		slot.Objective = next.Objective
		slot.GemsToWin = next.Gems
		slot.XPToWin = next.XP
		slot.MoneyToWin = next.Money
		slot.PointsToWin = next.Points
		slot.SaveBlob = nil
		slot.Campaign = true
		slot.ExpiresAt = nil
		nd := initial
		if nd < 0 {
			nd = 0
		}
		if nd > next.Objective {
			nd = next.Objective
		}
		slot.NumberDone = nd

		if initial >= next.Objective {
			continue
		}
		break
	}

	// One persist after the loop, not one per chain link.
	if finished {
		if err := e.store.DeleteSlot(ctx, slot); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.SaveSlot(ctx, slot); err != nil {
			return nil, err
		}
	}
	if err := e.store.SaveStatus(ctx, status); err != nil {
		return nil, err
	}
	return out, nil
}

// markCampaignDone flips position idx of the campaign bitstring to '1',
// padding with '0' up to total first. Bits only ever flip 0→1.
func markCampaignDone(blob string, idx, total int) string {
	bits := []byte(blob)
	for len(bits) < total {
		bits = append(bits, '0')
	}
	if idx >= 0 && idx < len(bits) {
		bits[idx] = '1'
	}
	return string(bits)
}
