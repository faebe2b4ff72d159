package mission

import (
	"errors"

	"github.com/mistveil/textrpg/server/model"
)

// Mission ids with engine-level meaning. All other ids are plain data.
const (
	MissionDailyStreak = "dailyStreak"
)

// Sentinel errors. Both indicate a content/configuration defect and abort
// the whole update cycle rather than being skipped.
var (
	ErrUnknownMission   = errors.New("mission: no definition for mission id")
	ErrCampaignPosition = errors.New("mission: campaign progression out of range")
)

// MissionType tags which category a completed mission belongs to.
type MissionType string

const (
	TypeNormal   MissionType = "NORMAL"
	TypeDaily    MissionType = "DAILY"
	TypeCampaign MissionType = "CAMPAIGN"
)

// Event is one mission progress event reported by game logic.
// Count defaults to 1. Set replaces progress instead of incrementing;
// the result is still clamped to the objective and never decreases.
type Event struct {
	MissionID string
	Count     int
	Params    map[string]interface{}
	Set       bool
}

// CompletedMission is one mission finished within a single update cycle,
// carrying the final reward amounts to grant.
type CompletedMission struct {
	MissionID  string      `json:"mission_id"`
	Variant    int         `json:"variant"`
	Objective  int         `json:"objective"`
	NumberDone int         `json:"number_done"`
	Gems       int         `json:"gems"`
	XP         int         `json:"xp"`
	Money      int64       `json:"money"`
	Points     int64       `json:"points"`
	PetTypeID  int         `json:"pet_type_id,omitempty"`
	Type       MissionType `json:"type"`
}

// ExpiredMission identifies a slot removed because its deadline passed.
type ExpiredMission struct {
	MissionID string `json:"mission_id"`
	Variant   int    `json:"variant"`
	Objective int    `json:"objective"`
}

// Notification kinds pushed onto the response sink.
const (
	KindMissionsCompleted = "missions_completed"
	KindMissionsExpired   = "missions_expired"
)

// Notification is one outbound record for downstream presentation.
type Notification struct {
	Kind      string             `json:"kind"`
	PlayerID  int64              `json:"player_id"`
	Completed []CompletedMission `json:"completed,omitempty"`
	Expired   []ExpiredMission   `json:"expired,omitempty"`
}

// Sink is the append-only output list the engine pushes notifications onto.
type Sink struct {
	notifications []Notification
}

// Push appends a notification.
func (s *Sink) Push(n Notification) {
	s.notifications = append(s.notifications, n)
}

// Notifications returns everything pushed so far, in order.
func (s *Sink) Notifications() []Notification {
	return s.notifications
}

// Completed returns all completed missions across every pushed notification.
func (s *Sink) Completed() []CompletedMission {
	var out []CompletedMission
	for _, n := range s.notifications {
		out = append(out, n.Completed...)
	}
	return out
}

func completedFromSlot(slot *model.MissionSlot, typ MissionType) CompletedMission {
	return CompletedMission{
		MissionID:  slot.MissionID,
		Variant:    slot.Variant,
		Objective:  slot.Objective,
		NumberDone: slot.NumberDone,
		Gems:       slot.GemsToWin,
		XP:         slot.XPToWin,
		Money:      slot.MoneyToWin,
		Points:     slot.PointsToWin,
		Type:       typ,
	}
}
