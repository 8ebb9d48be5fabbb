package models

import (
	"time"
)

// User is a Blue War player keyed by Discord snowflake.
// Rows are created by match ingestion, the seed overlay or an admin, and never deleted.
type User struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	DiscordID string  `gorm:"type:varchar(32);uniqueIndex;not null" json:"discord_id"`
	Nickname  *string `gorm:"type:varchar(100)" json:"nickname,omitempty"`
	Note      *string `gorm:"type:text" json:"note,omitempty"`

	// Handicap stats layered beneath live match results. Never negative.
	BaseWins   int `gorm:"not null;default:0" json:"base_wins"`
	BaseLosses int `gorm:"not null;default:0" json:"base_losses"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "users" }

// NicknameOrEmpty returns the nickname, or "" when unset.
func (u *User) NicknameOrEmpty() string {
	if u == nil || u.Nickname == nil {
		return ""
	}
	return *u.Nickname
}

// MemberUser is a read-only site account (login id + password).
// Admin rights come from IsAdmin or from the configured admin id list.
type MemberUser struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	DiscordID    string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"discord_id"`
	Nickname     string     `gorm:"type:varchar(100);not null" json:"nickname"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (MemberUser) TableName() string { return "member_users" }

// StringPtr returns nil for "" so optional text columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
