package models

import "time"

const (
	ModePvP      = "pvp"
	ModePractice = "practice"
	ModeUnknown  = "unknown"

	StatusUnknown = "unknown"
)

// Match records one completed or aborted Blue War duel (PvP / practice vs AI).
// Written once by the ingestion endpoint together with its participants.
type Match struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Mode   string `gorm:"type:varchar(64);not null;index" json:"mode"`
	Status string `gorm:"type:varchar(64);not null;default:'unknown'" json:"status"`

	StarterDiscordID string  `gorm:"type:varchar(32);not null" json:"starter_discord_id"`
	WinnerDiscordID  *string `gorm:"type:varchar(32);index" json:"winner_discord_id,omitempty"`
	LoserDiscordID   *string `gorm:"type:varchar(32);index" json:"loser_discord_id,omitempty"`

	WinGap      *int `json:"win_gap,omitempty"`
	TotalRounds *int `json:"total_rounds,omitempty"` // words used in the whole game

	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`

	Note      *string `gorm:"type:text" json:"note,omitempty"`
	ReviewLog *string `gorm:"type:text" json:"review_log,omitempty"` // full word chain

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Participants []Participant `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}

func (Match) TableName() string { return "bluewar_matches" }

// Participant is one side of a match (human or bot).
type Participant struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	MatchID uint  `gorm:"not null;index" json:"match_id"`
	UserID  *uint `gorm:"index" json:"user_id,omitempty"`
	User    *User `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	DiscordID *string `gorm:"type:varchar(32);index" json:"discord_id,omitempty"`
	Name      *string `gorm:"type:varchar(100)" json:"name,omitempty"`
	AIName    *string `gorm:"column:ai_name;type:varchar(50)" json:"ai_name,omitempty"`

	Side     int  `gorm:"not null" json:"side"`
	IsWinner bool `gorm:"not null;default:false" json:"is_winner"`
	Score    *int `json:"score,omitempty"`
	Turns    *int `json:"turns,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Participant) TableName() string { return "bluewar_participants" }
