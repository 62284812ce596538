package model

import (
	"time"

	"gorm.io/gorm"
)

// User struct
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `json:"role"`

	// Presence. LastSeen is stamped only on the transition to offline.
	Online   bool       `gorm:"not null;default:false" json:"online"`
	LastSeen *time.Time `json:"lastSeen"`

	Otp_enabled bool `gorm:"default:false;"`
	Otp_secret  string
}

// UserBlock is a one-directional block edge. Only the blocker can see and
// manage the edge; enforcement checks both directions.
type UserBlock struct {
	gorm.Model
	BlockerID uint `gorm:"not null;uniqueIndex:idx_block_pair" json:"blockerId"`
	BlockedID uint `gorm:"not null;uniqueIndex:idx_block_pair" json:"blockedId"`
}
