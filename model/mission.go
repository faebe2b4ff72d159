package model

import "time"

// MissionSlot is one in-progress mission held by a player. A player holds
// several non-campaign slots plus at most one campaign slot. Campaign slots
// never expire; their row is rewritten in place when the player advances to
// the next campaign mission.
type MissionSlot struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID    int64      `gorm:"index:idx_slot_player;not null" json:"player_id"`
	MissionID   string     `gorm:"size:64;not null" json:"mission_id"`
	Variant     int        `gorm:"default:0" json:"variant"`
	Objective   int        `gorm:"not null" json:"objective"`
	NumberDone  int        `gorm:"default:0" json:"number_done"`
	GemsToWin   int        `gorm:"default:0" json:"gems_to_win"`
	XPToWin     int        `gorm:"default:0" json:"xp_to_win"`
	MoneyToWin  int64      `gorm:"default:0" json:"money_to_win"`
	PointsToWin int64      `gorm:"default:0" json:"points_to_win"`
	ExpiresAt   *time.Time `json:"expires_at"` // nil for campaign slots
	SaveBlob    []byte     `gorm:"type:blob" json:"-"`
	Campaign    bool       `gorm:"default:false" json:"campaign"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCompleted reports whether the slot has reached its objective.
func (s *MissionSlot) IsCompleted() bool {
	return s.NumberDone >= s.Objective
}

// IsExpired reports whether the slot's deadline has passed at the given time.
// Campaign slots never expire.
func (s *MissionSlot) IsExpired(now time.Time) bool {
	if s.Campaign || s.ExpiresAt == nil {
		return false
	}
	return now.After(*s.ExpiresAt)
}

// MissionStatus holds a player's mission bookkeeping outside the slots:
// gem currency, daily-mission state and campaign progression.
type MissionStatus struct {
	PlayerID             int64      `gorm:"primaryKey" json:"player_id"`
	Gems                 int        `gorm:"default:0" json:"gems"`
	LastDailyCompletedAt *time.Time `json:"last_daily_completed_at"`
	// DailyDay is the calendar day the daily progress below belongs to;
	// progress from an earlier day is stale and resets on first touch.
	DailyDay        string `gorm:"size:10" json:"daily_day"`
	DailyNumberDone int    `gorm:"default:0" json:"daily_number_done"`
	DailyBlob       []byte `gorm:"type:blob" json:"-"`
	// CampaignProgression is 1-based; 0 means no more campaign missions.
	CampaignProgression int    `gorm:"default:1" json:"campaign_progression"`
	CampaignBlob        string `gorm:"size:256" json:"campaign_blob"` // '0'/'1' per campaign mission, display/audit only
	WeeklyBoostBought   bool   `gorm:"default:false" json:"weekly_boost_bought"`
	MissionsDoneToday   int    `gorm:"default:0" json:"missions_done_today"`
	MissionsDoneWeek    int    `gorm:"default:0" json:"missions_done_week"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CompletedDailyOn reports whether the player already completed the shared
// daily mission on the calendar day containing now. Completion is sticky for
// the rest of the day.
func (st *MissionStatus) CompletedDailyOn(now time.Time) bool {
	if st.LastDailyCompletedAt == nil {
		return false
	}
	return SameCalendarDay(*st.LastDailyCompletedAt, now)
}

// SameCalendarDay reports whether a and b fall on the same calendar day
// (local time), regardless of elapsed hours.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DailyMissionRecord is the single globally-shared daily mission, regenerated
// once per calendar day. Day is the local date in YYYY-MM-DD form.
type DailyMissionRecord struct {
	Day         string    `gorm:"primaryKey;size:10" json:"day"`
	MissionID   string    `gorm:"size:64;not null" json:"mission_id"`
	Variant     int       `gorm:"default:0" json:"variant"`
	Objective   int       `gorm:"not null" json:"objective"`
	GemsToWin   int       `gorm:"default:0" json:"gems_to_win"`
	XPToWin     int       `gorm:"default:0" json:"xp_to_win"`
	MoneyToWin  int64     `gorm:"default:0" json:"money_to_win"`
	PointsToWin int64     `gorm:"default:0" json:"points_to_win"`
	GeneratedAt time.Time `gorm:"autoCreateTime" json:"generated_at"`
}
