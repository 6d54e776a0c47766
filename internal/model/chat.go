package model

import "time"

// Chat is a persisted conversation thread. The id is supplied by the client on
// the first turn; the row is created at most once and never updated afterwards.
type Chat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
