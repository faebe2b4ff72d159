package mission

import (
	"bytes"
	"strconv"

	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
)

// paramInt extracts an integer event parameter. JSON-decoded payloads carry
// numbers as float64, so both forms are accepted.
func paramInt(params map[string]interface{}, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// blobHasToken reports whether the comma-joined blob contains token as a
// whole entry. Whole-token comparison, not substring: id "2" must not match
// inside "26".
func blobHasToken(blob []byte, token string) bool {
	if len(blob) == 0 {
		return false
	}
	for _, part := range bytes.Split(blob, []byte(",")) {
		if string(part) == token {
			return true
		}
	}
	return false
}

// blobAppendToken returns a new blob with token appended, or the blob
// unchanged (same value) when the token is already present.
func blobAppendToken(blob []byte, token string) []byte {
	if blobHasToken(blob, token) {
		return blob
	}
	if len(blob) == 0 {
		return []byte(token)
	}
	out := make([]byte, 0, len(blob)+1+len(token))
	out = append(out, blob...)
	out = append(out, ',')
	out = append(out, token...)
	return out
}

// PlaceVisitMatcher counts visits to distinct places. The blob is the
// comma-joined list of place ids already counted; revisiting any of them
// does not count again and leaves the blob untouched.
type PlaceVisitMatcher struct{}

func (PlaceVisitMatcher) GenerateRandomVariant(d resource.Difficulty, _ *model.Player) int {
	// Variant selects the map region the places belong to; one region per
	// difficulty tier keeps easy slots near the starting area.
	return int(d) + 1
}

func (PlaceVisitMatcher) ParamsMatch(_ int, params map[string]interface{}, blob []byte) bool {
	placeID, ok := paramInt(params, "place_id")
	if !ok {
		return false
	}
	return !blobHasToken(blob, strconv.Itoa(placeID))
}

func (PlaceVisitMatcher) UpdateSaveBlob(_ int, blob []byte, params map[string]interface{}) []byte {
	placeID, ok := paramInt(params, "place_id")
	if !ok {
		return blob
	}
	return blobAppendToken(blob, strconv.Itoa(placeID))
}

func (PlaceVisitMatcher) InitialNumberDone(*model.Player, int) int { return 0 }
func (PlaceVisitMatcher) AlwaysUpdateBlob() bool                   { return false }

// MapDiscoverMatcher counts newly discovered destination maps. It records
// every map the player is seen on, origin included, so that later travelling
// back to an origin map never counts as a discovery. That is why the blob is
// refreshed on every event of this mission id, accepted or not.
type MapDiscoverMatcher struct{}

func (MapDiscoverMatcher) GenerateRandomVariant(resource.Difficulty, *model.Player) int { return 0 }

func (MapDiscoverMatcher) ParamsMatch(_ int, params map[string]interface{}, blob []byte) bool {
	toMap, ok := paramInt(params, "to_map_id")
	if !ok {
		return false
	}
	return !blobHasToken(blob, strconv.Itoa(toMap))
}

func (MapDiscoverMatcher) UpdateSaveBlob(_ int, blob []byte, params map[string]interface{}) []byte {
	if fromMap, ok := paramInt(params, "from_map_id"); ok {
		blob = blobAppendToken(blob, strconv.Itoa(fromMap))
	}
	if toMap, ok := paramInt(params, "to_map_id"); ok {
		blob = blobAppendToken(blob, strconv.Itoa(toMap))
	}
	return blob
}

func (MapDiscoverMatcher) InitialNumberDone(*model.Player, int) int { return 0 }
func (MapDiscoverMatcher) AlwaysUpdateBlob() bool                   { return true }

// ReachLevelMatcher tracks the player's character level. Slots start at the
// player's current level, so a freshly staged campaign mission can already
// be satisfied and chain-complete immediately.
type ReachLevelMatcher struct{}

func (ReachLevelMatcher) GenerateRandomVariant(resource.Difficulty, *model.Player) int { return 0 }
func (ReachLevelMatcher) ParamsMatch(int, map[string]interface{}, []byte) bool         { return true }
func (ReachLevelMatcher) UpdateSaveBlob(_ int, blob []byte, _ map[string]interface{}) []byte {
	return blob
}
func (ReachLevelMatcher) InitialNumberDone(p *model.Player, _ int) int {
	if p == nil {
		return 0
	}
	return p.Level
}
func (ReachLevelMatcher) AlwaysUpdateBlob() bool { return false }

// DailyStreakMatcher backs the always-present daily streak mission. The
// streak reset logic lives in the engine; the matcher itself counts every
// streak event.
type DailyStreakMatcher struct{}

func (DailyStreakMatcher) GenerateRandomVariant(resource.Difficulty, *model.Player) int { return 0 }
func (DailyStreakMatcher) ParamsMatch(int, map[string]interface{}, []byte) bool         { return true }
func (DailyStreakMatcher) UpdateSaveBlob(_ int, blob []byte, _ map[string]interface{}) []byte {
	return blob
}
func (DailyStreakMatcher) InitialNumberDone(*model.Player, int) int { return 0 }
func (DailyStreakMatcher) AlwaysUpdateBlob() bool                   { return false }
