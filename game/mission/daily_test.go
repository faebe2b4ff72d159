package mission

import (
	"context"
	"testing"
	"time"

	"github.com/mistveil/textrpg/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test fixture's only daily-eligible mission is petFeed with objective 3
// at every difficulty, so the generated daily is fully deterministic.

func TestDaily_ProgressAndCompletion(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)

	sink := &Sink{}
	for i := 0; i < 2; i++ {
		_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}
	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.DailyNumberDone)
	assert.Nil(t, status.LastDailyCompletedAt)
	assert.Empty(t, sink.Completed())

	_, err = env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
	require.NoError(t, err)

	done := sink.Completed()
	require.Len(t, done, 1)
	assert.Equal(t, TypeDaily, done[0].Type)
	assert.Equal(t, 1, done[0].Gems)
	assert.Equal(t, 30, done[0].XP)
	assert.Equal(t, int64(200), done[0].Money, "daily money is multiplied by 4")
	assert.Equal(t, int64(10), done[0].Points, "daily points are multiplied by 2")

	status, err = env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, status.LastDailyCompletedAt)
	assert.True(t, model.SameCalendarDay(*status.LastDailyCompletedAt, env.now))
	assert.Equal(t, 1, status.Gems)
	assert.Equal(t, int64(200), p.Money)
}

func TestDaily_CompletionIsStickyForTheDay(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)

	sink := &Sink{}
	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}
	require.Len(t, sink.Completed(), 1)

	// Later the same day: no second completion, even hours apart.
	env.now = env.now.Add(6 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}
	assert.Len(t, sink.Completed(), 1)

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.DailyNumberDone, "progress frozen once complete")
}

func TestDaily_CompletableAgainNextDay(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)

	sink := &Sink{}
	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}
	require.Len(t, sink.Completed(), 1)

	// Shortly after midnight the next day, completion unsticks and progress
	// starts from zero against the new day's mission.
	env.now = env.now.Add(10 * time.Hour)
	_, err := env.engine.Update(context.Background(), p, &Sink{}, Event{MissionID: "petFeed"})
	require.NoError(t, err)

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DailyNumberDone, "yesterday's progress does not carry over")
}

func TestDaily_PartialProgressResetsOnNewDay(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)

	_, err := env.engine.Update(context.Background(), p, &Sink{}, Event{MissionID: "petFeed", Count: 2})
	require.NoError(t, err)

	env.now = env.now.AddDate(0, 0, 1)
	sink := &Sink{}
	_, err = env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed", Count: 2})
	require.NoError(t, err)
	assert.Empty(t, sink.Completed(), "2 stale + 2 fresh must not complete objective 3")

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.DailyNumberDone)
}

func TestDaily_StreakContinuesAfterConsecutiveDay(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	yesterday := env.now.AddDate(0, 0, -1)

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	status.LastDailyCompletedAt = &yesterday
	require.NoError(t, env.store.SaveStatus(context.Background(), status))

	env.addSlot(t, &model.MissionSlot{
		PlayerID: p.ID, MissionID: MissionDailyStreak, Objective: 5, NumberDone: 2,
	})

	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, &Sink{}, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}

	streak := env.slot(t, p.ID, MissionDailyStreak)
	require.NotNil(t, streak)
	assert.Equal(t, 3, streak.NumberDone, "consecutive day extends the streak")
}

func TestDaily_StreakBreaksAfterGap(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)
	threeDaysAgo := env.now.AddDate(0, 0, -3)

	status, err := env.store.StatusOfPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	status.LastDailyCompletedAt = &threeDaysAgo
	require.NoError(t, env.store.SaveStatus(context.Background(), status))

	env.addSlot(t, &model.MissionSlot{
		PlayerID: p.ID, MissionID: MissionDailyStreak, Objective: 5, NumberDone: 3,
	})

	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, &Sink{}, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}

	streak := env.slot(t, p.ID, MissionDailyStreak)
	require.NotNil(t, streak)
	assert.Equal(t, 1, streak.NumberDone, "gap resets the streak before counting today")
}

func TestDaily_StreakResolvesBeforeCompletionStamp(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPlayer(t)

	// No previous daily completion at all: the streak must still observe the
	// pre-completion state (nil), not today's fresh stamp.
	env.addSlot(t, &model.MissionSlot{
		PlayerID: p.ID, MissionID: MissionDailyStreak, Objective: 5, NumberDone: 4,
	})

	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, &Sink{}, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}

	streak := env.slot(t, p.ID, MissionDailyStreak)
	require.NotNil(t, streak)
	assert.Equal(t, 1, streak.NumberDone, "broken streak resets even when completing today")
}

func TestDaily_BlessingScalesRewards(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetBlessing(func() float64 { return 2 })
	p := env.createPlayer(t)

	sink := &Sink{}
	for i := 0; i < 3; i++ {
		_, err := env.engine.Update(context.Background(), p, sink, Event{MissionID: "petFeed"})
		require.NoError(t, err)
	}

	done := sink.Completed()
	require.Len(t, done, 1)
	assert.Equal(t, 2, done[0].Gems)
	assert.Equal(t, 60, done[0].XP)
	assert.Equal(t, int64(400), done[0].Money)
	assert.Equal(t, int64(20), done[0].Points)
}
