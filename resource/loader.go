package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ---- Static mission data structures ----

// Difficulty indexes the per-difficulty arrays of a MissionDefinition.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

// MissionDefinition is the static description of one mission type.
// Per-difficulty arrays are indexed by Difficulty. Immutable after load.
type MissionDefinition struct {
	ID               string  `json:"id"`
	Objectives       []int   `json:"objectives"`       // objective threshold per difficulty
	ExpirationsHours []int   `json:"expirations"`      // expiration in hours per difficulty
	Gems             []int   `json:"gems"`
	XP               []int   `json:"xp"`
	Money            []int64 `json:"money"`
	Points           []int64 `json:"points"`
	DailyEligible    bool    `json:"daily"`
	DailyIndexes     []int   `json:"daily_indexes,omitempty"`
}

// CampaignMission is one entry in the fixed, ordered campaign list.
// Index in the list (1-based) is the player's progression position.
type CampaignMission struct {
	MissionID string `json:"mission_id"`
	Variant   int    `json:"variant"`
	Objective int    `json:"objective"`
	Gems      int    `json:"gems"`
	XP        int    `json:"xp"`
	Money     int64  `json:"money"`
	Points    int64  `json:"points"`
	PetTypeID int    `json:"pet_type_id,omitempty"` // 0 = no pet reward
}

// Loader loads and serves the static mission data files.
type Loader struct {
	dataPath string

	Missions map[string]*MissionDefinition
	Campaign []CampaignMission
}

// NewLoader creates a Loader reading from the given directory.
func NewLoader(dataPath string) *Loader {
	return &Loader{
		dataPath: dataPath,
		Missions: make(map[string]*MissionDefinition),
	}
}

// Load reads missions.json and campaign.json from the data path.
func (l *Loader) Load() error {
	if err := l.loadJSON("missions.json", &l.Missions); err != nil {
		return fmt.Errorf("resource: missions.json: %w", err)
	}
	for id, def := range l.Missions {
		if def.ID == "" {
			def.ID = id
		}
	}
	if err := l.loadJSON("campaign.json", &l.Campaign); err != nil {
		return fmt.Errorf("resource: campaign.json: %w", err)
	}
	for i, cm := range l.Campaign {
		if cm.MissionID == "" {
			return fmt.Errorf("resource: campaign.json entry %d has no mission_id", i)
		}
		if cm.Objective <= 0 {
			return fmt.Errorf("resource: campaign mission %q has objective %d", cm.MissionID, cm.Objective)
		}
	}
	return nil
}

func (l *Loader) loadJSON(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(l.dataPath, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// MissionByID returns the definition for a mission id, or nil.
func (l *Loader) MissionByID(id string) *MissionDefinition {
	return l.Missions[id]
}

// CampaignList returns the static ordered campaign mission list.
func (l *Loader) CampaignList() []CampaignMission {
	return l.Campaign
}

// DailyEligible returns the definitions flagged as daily-eligible.
func (l *Loader) DailyEligible() []*MissionDefinition {
	var out []*MissionDefinition
	for _, def := range l.Missions {
		if def.DailyEligible {
			out = append(out, def)
		}
	}
	return out
}

// At returns the per-difficulty value of arr, falling back to the last
// element when the array is shorter than the difficulty index.
func At[T any](arr []T, d Difficulty) T {
	var zero T
	if len(arr) == 0 {
		return zero
	}
	i := int(d)
	if i >= len(arr) {
		i = len(arr) - 1
	}
	return arr[i]
}
