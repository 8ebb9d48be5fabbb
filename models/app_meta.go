package models

import "time"

// AppMeta is a key/value marker store for one-time or change-triggered work
// (seed content hash, bootstrap flags).
type AppMeta struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     *string   `gorm:"type:text" json:"value,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppMeta) TableName() string { return "app_meta" }

// All lists every persisted model in creation order.
func All() []any {
	return []any{
		&User{},
		&MemberUser{},
		&Match{},
		&Participant{},
		&AppMeta{},
	}
}
