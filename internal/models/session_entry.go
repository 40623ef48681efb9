package models

import "time"

// SessionEntry is one persisted client preference (key-value).
type SessionEntry struct {
	Key       string    `gorm:"primarykey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name.
func (SessionEntry) TableName() string {
	return "session_entries"
}
