// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit, in bytes
	MaxUsernameLength = 30
	MaxMessageLength  = 140
	MaxBioLength      = 500
	MaxLocationLength = 100
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks the password length. An empty password is always rejected.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, periods, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// NormalizeMessageText trims surrounding whitespace and checks the 1..140
// character bound.
func NormalizeMessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", fmt.Errorf("message must not exceed %d characters", MaxMessageLength)
	}
	return text, nil
}

// ValidateImageURL accepts an empty value, a site-relative path or an absolute http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" || strings.HasPrefix(raw, "/") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL must be an http(s) URL")
	}
	return nil
}

// ValidateProfileText checks the free-form profile fields.
func ValidateProfileText(bio, location string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return fmt.Errorf("location must not exceed %d characters", MaxLocationLength)
	}
	return nil
}
