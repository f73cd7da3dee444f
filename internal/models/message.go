package models

import (
	"time"
	"unicode/utf8"
)

// Message is a short post ("warble") owned by a user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	// Column size matches validation.MaxMessageLength.
	Text      string    `gorm:"size:140;not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`

	// Computed by repository queries, never persisted.
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	Liked      bool  `gorm:"->;-:migration" json:"liked"`
}

// TextLength returns the length of the text in characters.
func (m *Message) TextLength() int {
	return utf8.RuneCountInString(m.Text)
}
