package models

import "time"

// Follow is a directed edge: UserFollowingID follows UserBeingFollowedID.
type Follow struct {
	UserBeingFollowedID uint      `gorm:"primaryKey;autoIncrement:false" json:"user_being_followed_id"`
	UserFollowingID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_following_id"`
	CreatedAt           time.Time `json:"created_at"`

	// Relationships
	UserBeingFollowed User `gorm:"foreignKey:UserBeingFollowedID;constraint:OnDelete:CASCADE" json:"-"`
	UserFollowing     User `gorm:"foreignKey:UserFollowingID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
