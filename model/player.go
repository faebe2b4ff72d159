package model

import "time"

// Player represents a player's in-game character and aggregate stats.
type Player struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64     `gorm:"index:idx_player_account;not null" json:"account_id"`
	Name       string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Level      int       `gorm:"default:1" json:"level"`
	Experience int64     `gorm:"default:0" json:"experience"`
	Money      int64     `gorm:"default:0" json:"money"`
	Score      int64     `gorm:"default:0" json:"score"`
	Health     int       `gorm:"default:100" json:"health"`
	MaxHealth  int       `gorm:"default:100" json:"max_health"`
	MapID      int       `gorm:"default:1" json:"map_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Pet is a companion granted as a campaign mission reward.
type Pet struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID  int64     `gorm:"index:idx_pet_player;not null" json:"player_id"`
	TypeID    int       `gorm:"not null" json:"type_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
