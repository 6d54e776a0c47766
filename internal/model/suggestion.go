package model

import "time"

type Suggestion struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID    string    `gorm:"size:36;not null;index" json:"document_id"`
	OriginalText  string    `gorm:"type:text;not null" json:"original_text"`
	SuggestedText string    `gorm:"type:text;not null" json:"suggested_text"`
	Description   string    `gorm:"type:text" json:"description"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}
