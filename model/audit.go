package model

import (
	"time"

	"gorm.io/datatypes"
)

// MissionAuditLog records mission lifecycle events (completions, expirations,
// campaign advances) for support and balancing analysis.
type MissionAuditLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_maudit_trace;size:36" json:"trace_id"`
	PlayerID  int64          `gorm:"index:idx_maudit_player;not null" json:"player_id"`
	MissionID string         `gorm:"size:64;not null" json:"mission_id"`
	Action    string         `gorm:"size:32;not null" json:"action"` // completed | expired | campaign_advanced
	Detail    datatypes.JSON `json:"detail"`
	CreatedAt time.Time      `gorm:"index:idx_maudit_created;autoCreateTime:milli" json:"created_at"`
}
