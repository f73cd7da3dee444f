package models

import "time"

// Like represents a user's like on a message.
// The combination of UserID and MessageID is the primary key.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	MessageID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"message_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Message Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}
