package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "password", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("b", 72), false},
		{"Empty", "", true},
		{"Too Short", "abc", true},
		{"Too Long", strings.Repeat("b", 73), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Simple", "testuser", false},
		{"With Digits", "user1", false},
		{"With Punctuation", "jane.doe_99-x", false},
		{"Max Length", strings.Repeat("a", 30), false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Spaces", "two words", true},
		{"Markup", "<script>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("test@test.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@mail.example.org"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("a@b"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.com"))
}

func TestNormalizeMessageText(t *testing.T) {
	t.Parallel()

	text, err := NormalizeMessageText("  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	_, err = NormalizeMessageText("   ")
	assert.Error(t, err)

	text, err = NormalizeMessageText(strings.Repeat("é", 140))
	require.NoError(t, err)
	assert.Len(t, []rune(text), 140)

	_, err = NormalizeMessageText(strings.Repeat("a", 141))
	assert.Error(t, err)
}

func TestValidateImageURL(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateImageURL(""))
	assert.NoError(t, ValidateImageURL("/static/images/default-pic.png"))
	assert.NoError(t, ValidateImageURL("https://images.example.com/a.jpg"))
	assert.Error(t, ValidateImageURL("javascript:alert(1)"))
	assert.Error(t, ValidateImageURL("ftp://example.com/a.jpg"))
}

func TestValidateProfileText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateProfileText("hi", "Berlin"))
	assert.Error(t, ValidateProfileText(strings.Repeat("x", 501), ""))
	assert.Error(t, ValidateProfileText("", strings.Repeat("x", 101)))
}
