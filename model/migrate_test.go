package model_test

import (
	"testing"
	"time"

	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Account
	acc := &model.Account{Username: "test_user", PasswordHash: "hash", Status: 1}
	require.NoError(t, db.Create(acc).Error)
	assert.Greater(t, acc.ID, int64(0))

	var found model.Account
	require.NoError(t, db.First(&found, acc.ID).Error)
	assert.Equal(t, "test_user", found.Username)

	// Player
	p := &model.Player{AccountID: acc.ID, Name: "Hero", Level: 1, Health: 100, MaxHealth: 100}
	require.NoError(t, db.Create(p).Error)
	assert.Greater(t, p.ID, int64(0))

	// MissionSlot
	expires := time.Now().Add(24 * time.Hour)
	slot := &model.MissionSlot{
		PlayerID: p.ID, MissionID: "placeVisit", Variant: 3,
		Objective: 5, NumberDone: 1, ExpiresAt: &expires,
		SaveBlob: []byte("2,26"),
	}
	require.NoError(t, db.Create(slot).Error)

	var gotSlot model.MissionSlot
	require.NoError(t, db.First(&gotSlot, slot.ID).Error)
	assert.Equal(t, []byte("2,26"), gotSlot.SaveBlob)

	// MissionStatus
	st := &model.MissionStatus{PlayerID: p.ID, CampaignProgression: 1, CampaignBlob: "000"}
	require.NoError(t, db.Create(st).Error)

	// DailyMissionRecord
	daily := &model.DailyMissionRecord{Day: "2026-08-31", MissionID: "earnMoney", Objective: 100}
	require.NoError(t, db.Create(daily).Error)

	// Pet
	pet := &model.Pet{PlayerID: p.ID, TypeID: 7}
	require.NoError(t, db.Create(pet).Error)

	// MissionAuditLog
	al := &model.MissionAuditLog{
		TraceID: "trace-001", PlayerID: p.ID, MissionID: "placeVisit", Action: "completed",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(al).Error)
}

func TestMissionSlot_CompletionAndExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	slot := &model.MissionSlot{Objective: 5, NumberDone: 4, ExpiresAt: &future}
	assert.False(t, slot.IsCompleted())
	assert.False(t, slot.IsExpired(now))

	slot.NumberDone = 5
	assert.True(t, slot.IsCompleted())

	slot.ExpiresAt = &past
	assert.True(t, slot.IsExpired(now))

	// Campaign slots never expire, even with a stale deadline.
	slot.Campaign = true
	assert.False(t, slot.IsExpired(now))
}

func TestMissionStatus_CompletedDailyOn(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.Local)

	st := &model.MissionStatus{}
	assert.False(t, st.CompletedDailyOn(now))

	sameDay := time.Date(2026, 8, 31, 0, 30, 0, 0, time.Local)
	st.LastDailyCompletedAt = &sameDay
	assert.True(t, st.CompletedDailyOn(now))

	yesterday := now.AddDate(0, 0, -1)
	st.LastDailyCompletedAt = &yesterday
	assert.False(t, st.CompletedDailyOn(now))
}
