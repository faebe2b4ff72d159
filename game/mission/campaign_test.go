package mission

import (
	"context"
	"testing"

	"github.com/mistveil/textrpg/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageCampaign puts the player's campaign slot at the given 1-based
// position of the test campaign list.
func (env *testEnv) stageCampaign(t *testing.T, p *model.Player, pos int) *model.MissionSlot {
	t.Helper()
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	status.CampaignProgression = pos
	require.NoError(t, env.store.SaveStatus(context.Background(), status))

	entry := env.res.CampaignList()[pos-1]
	return env.addSlot(t, &model.MissionSlot{
		PlayerID:    p.ID,
		MissionID:   entry.MissionID,
		Variant:     entry.Variant,
		Objective:   entry.Objective,
		GemsToWin:   entry.Gems,
		XPToWin:     entry.XP,
		MoneyToWin:  entry.Money,
		PointsToWin: entry.Points,
		Campaign:    true,
	})
}

func TestCampaign_ChainCompletesAlreadySatisfiedMissions(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	env.stageCampaign(t, p, 1)

	// Completing mission 1 stages mission 2 (reachLevel, objective 1), which
	// a level 1 player already satisfies, so it completes in the same cycle.
	sink := &Sink{}
	_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "earnMoney", Count: 100})
	require.NoError(t, err)

	done := sink.Completed()
	require.Len(t, done, 2)
	assert.Equal(t, "earnMoney", done[0].MissionID)
	assert.Equal(t, TypeCampaign, done[0].Type)
	assert.Equal(t, "reachLevel", done[1].MissionID)

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.CampaignProgression)
	assert.Equal(t, "110", status.CampaignBlob)

	slot := env.slot(t, p.ID, "placeVisit")
	require.NotNil(t, slot, "next mission staged in the same slot")
	assert.True(t, slot.Campaign)
	assert.Equal(t, 1, slot.Variant)
	assert.Equal(t, 2, slot.Objective)
	assert.Zero(t, slot.NumberDone)
	assert.Nil(t, slot.SaveBlob)
	assert.Nil(t, slot.ExpiresAt)
}

func TestCampaign_LastMissionEndsProgression(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	status.CampaignBlob = "110"
	require.NoError(t, env.store.SaveStatus(context.Background(), status))
	env.stageCampaign(t, p, 3)

	sink := &Sink{}
	for _, place := range []int{4, 9} {
		_, err := env.engine.Update(context.Background(), p, sink, Event{
			MissionID: "placeVisit",
			Params:    map[string]interface{}{"place_id": place},
		})
		require.NoError(t, err)
	}

	done := sink.Completed()
	require.Len(t, done, 1)
	assert.Equal(t, 7, done[0].PetTypeID)

	status, err = env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Zero(t, status.CampaignProgression, "0 marks the list exhausted")
	assert.Equal(t, "111", status.CampaignBlob)

	slots, err := env.store.SlotsOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, slots, "campaign slot deleted after the last mission")
}

func TestCampaign_StateAtObjectiveIsNotACompletionSignal(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	slot := env.stageCampaign(t, p, 1)

	// The campaign slot sits exactly at its objective without this event
	// having pushed it there (a recursive reward call would observe this).
	slot.NumberDone = slot.Objective
	require.NoError(t, env.store.SaveSlot(context.Background(), slot))

	sink := &Sink{}
	_, err := env.engine.Update(context.Background(), p, sink, Event{
		MissionID: "mapDiscover",
		Params:    map[string]interface{}{"to_map_id": 3},
	})
	require.NoError(t, err)

	assert.Empty(t, sink.Completed(), "ambient slot state must not trigger the campaign")
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.CampaignProgression)
	require.NotNil(t, env.slot(t, p.ID, "earnMoney"), "slot is not restaged")
}

func TestCampaign_RepeatEventOnCompletedSlotDoesNotRefire(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	slot := env.stageCampaign(t, p, 1)
	slot.NumberDone = slot.Objective
	require.NoError(t, env.store.SaveSlot(context.Background(), slot))

	// The slot was already completed before this event, so the event cannot
	// be the one that completed it.
	sink := &Sink{}
	_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "earnMoney", Count: 50})
	require.NoError(t, err)
	assert.Empty(t, sink.Completed())
}

func TestCampaign_InvalidProgressionFails(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	slot := env.stageCampaign(t, p, 1)
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	status.CampaignProgression = 99
	require.NoError(t, env.store.SaveStatus(context.Background(), status))

	_, err = env.engine.completeCampaignMissions(context.Background(), p, status, true, slot)
	assert.ErrorIs(t, err, ErrCampaignPosition)

	_, err = env.engine.completeCampaignMissions(context.Background(), p, status, true, nil)
	assert.ErrorIs(t, err, ErrCampaignPosition)
}

func TestCampaign_NoSignalNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	slot := env.stageCampaign(t, p, 1)
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)

	done, err := env.engine.completeCampaignMissions(context.Background(), p, status, false, slot)
	require.NoError(t, err)
	assert.Empty(t, done)
	assert.Equal(t, 1, status.CampaignProgression)
}

func TestMarkCampaignDone(t *testing.T) {
	assert.Equal(t, "100", markCampaignDone("", 0, 3))
	assert.Equal(t, "110", markCampaignDone("100", 1, 3))
	assert.Equal(t, "111", markCampaignDone("110", 2, 3))
	// Already-set bits stay set.
	assert.Equal(t, "110", markCampaignDone("110", 0, 3))
}
