package mission

import (
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
)

// Matcher is the per-mission-type strategy deciding whether an event counts
// as progress for a slot and how the slot's save blob remembers it.
//
// ParamsMatch and UpdateSaveBlob must be pure functions of their inputs:
// no hidden state, no mutation of the given blob. UpdateSaveBlob must return
// the blob value-unchanged when nothing new should be remembered; the engine
// compares blobs by value to skip redundant persistence writes.
type Matcher interface {
	// GenerateRandomVariant picks which sub-case a newly assigned slot of
	// this mission type should track.
	GenerateRandomVariant(d resource.Difficulty, p *model.Player) int
	// ParamsMatch reports whether this event instance should count as
	// progress for a slot of the given variant, given what the blob has
	// already recorded.
	ParamsMatch(variant int, params map[string]interface{}, blob []byte) bool
	// UpdateSaveBlob returns the blob after this event is accepted.
	UpdateSaveBlob(variant int, blob []byte, params map[string]interface{}) []byte
	// InitialNumberDone computes a starting progress value for a newly
	// created slot. Some missions start partially complete from the
	// player's pre-existing state, enabling immediate chain completion.
	InitialNumberDone(p *model.Player, variant int) int
	// AlwaysUpdateBlob reports whether the blob is refreshed on every event
	// of this mission id even when ParamsMatch returned false.
	AlwaysUpdateBlob() bool
}

// defaultMatcher counts every event of the right mission id and remembers
// nothing. Used for any mission id without a specialized matcher.
type defaultMatcher struct{}

func (defaultMatcher) GenerateRandomVariant(resource.Difficulty, *model.Player) int { return 0 }
func (defaultMatcher) ParamsMatch(int, map[string]interface{}, []byte) bool         { return true }
func (defaultMatcher) UpdateSaveBlob(_ int, blob []byte, _ map[string]interface{}) []byte {
	return blob
}
func (defaultMatcher) InitialNumberDone(*model.Player, int) int { return 0 }
func (defaultMatcher) AlwaysUpdateBlob() bool                   { return false }

// DefaultMatcher is the fallback strategy singleton.
var DefaultMatcher Matcher = defaultMatcher{}

// Registry maps mission ids to their matcher, populated at startup.
type Registry struct {
	matchers map[string]Matcher
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{matchers: make(map[string]Matcher)}
}

// Register binds a matcher to a mission id, replacing any previous binding.
func (r *Registry) Register(missionID string, m Matcher) {
	r.matchers[missionID] = m
}

// Resolve returns the matcher for a mission id, falling back to
// DefaultMatcher when none is registered.
func (r *Registry) Resolve(missionID string) Matcher {
	if m, ok := r.matchers[missionID]; ok {
		return m
	}
	return DefaultMatcher
}

// DefaultRegistry returns a Registry with all shipped matchers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("placeVisit", PlaceVisitMatcher{})
	r.Register("mapDiscover", MapDiscoverMatcher{})
	r.Register("reachLevel", ReachLevelMatcher{})
	r.Register(MissionDailyStreak, DailyStreakMatcher{})
	return r
}
