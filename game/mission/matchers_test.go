package mission

import (
	"testing"

	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"github.com/stretchr/testify/assert"
)

func TestBlobTokens(t *testing.T) {
	assert.False(t, blobHasToken(nil, "2"))
	assert.True(t, blobHasToken([]byte("2,26,1"), "26"))
	assert.False(t, blobHasToken([]byte("26"), "2"), "whole-token, not substring")
	assert.False(t, blobHasToken([]byte("2,26"), "6"))

	blob := blobAppendToken(nil, "2")
	assert.Equal(t, "2", string(blob))
	blob = blobAppendToken(blob, "26")
	assert.Equal(t, "2,26", string(blob))
	same := blobAppendToken(blob, "26")
	assert.Equal(t, "2,26", string(same), "duplicate leaves the blob value-unchanged")
}

func TestPlaceVisitMatcher(t *testing.T) {
	m := PlaceVisitMatcher{}

	assert.True(t, m.ParamsMatch(1, map[string]interface{}{"place_id": 2}, nil))
	assert.False(t, m.ParamsMatch(1, map[string]interface{}{"place_id": 2}, []byte("2,26")))
	assert.True(t, m.ParamsMatch(1, map[string]interface{}{"place_id": 2}, []byte("26")))
	assert.False(t, m.ParamsMatch(1, map[string]interface{}{}, nil), "missing place_id never matches")

	// JSON-decoded params carry numbers as float64.
	assert.False(t, m.ParamsMatch(1, map[string]interface{}{"place_id": float64(26)}, []byte("26")))

	assert.Equal(t, 1, m.GenerateRandomVariant(resource.DifficultyEasy, nil))
	assert.Equal(t, 3, m.GenerateRandomVariant(resource.DifficultyHard, nil))
	assert.False(t, m.AlwaysUpdateBlob())
}

func TestMapDiscoverMatcher(t *testing.T) {
	m := MapDiscoverMatcher{}

	params := map[string]interface{}{"from_map_id": 1, "to_map_id": 5}
	assert.True(t, m.ParamsMatch(0, params, nil))
	blob := m.UpdateSaveBlob(0, nil, params)
	assert.Equal(t, "1,5", string(blob), "origin recorded alongside destination")

	back := map[string]interface{}{"from_map_id": 5, "to_map_id": 1}
	assert.False(t, m.ParamsMatch(0, back, blob), "return trip is no discovery")
	assert.True(t, m.AlwaysUpdateBlob())
}

func TestReachLevelMatcher(t *testing.T) {
	m := ReachLevelMatcher{}
	assert.Equal(t, 7, m.InitialNumberDone(&model.Player{Level: 7}, 0))
	assert.Zero(t, m.InitialNumberDone(nil, 0))
	assert.True(t, m.ParamsMatch(0, nil, nil))
}

func TestRegistry_FallbackToDefault(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve("somethingUnregistered")
	assert.Equal(t, DefaultMatcher, m)
	assert.True(t, m.ParamsMatch(0, nil, nil), "default matcher counts every event")
	assert.Zero(t, m.InitialNumberDone(nil, 0))

	r.Register("placeVisit", PlaceVisitMatcher{})
	assert.IsType(t, PlaceVisitMatcher{}, r.Resolve("placeVisit"))
}

func TestDefaultRegistry_KnownMissions(t *testing.T) {
	r := DefaultRegistry()
	assert.IsType(t, PlaceVisitMatcher{}, r.Resolve("placeVisit"))
	assert.IsType(t, MapDiscoverMatcher{}, r.Resolve("mapDiscover"))
	assert.IsType(t, ReachLevelMatcher{}, r.Resolve("reachLevel"))
	assert.IsType(t, DailyStreakMatcher{}, r.Resolve(MissionDailyStreak))
}
