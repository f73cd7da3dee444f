// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultImageURL is used when a user signs up without a profile picture.
	DefaultImageURL = "/static/images/default-pic.png"
	// DefaultHeaderImageURL is the profile banner shown until the user picks one.
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a Warbler account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate fills in the default images.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
	return nil
}

// UserProfile is a user together with its social counters and the viewer's
// relationship to it.
type UserProfile struct {
	User           User  `json:"user"`
	MessagesCount  int64 `json:"messages_count"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	LikesCount     int64 `json:"likes_count"`
	IsFollowing    bool  `json:"is_following"`
	IsFollowedBy   bool  `json:"is_followed_by"`
	IsSelf         bool  `json:"is_self"`
}
