package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Signup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Signup(ctx, SignupInput{
		Username: "  testuser ",
		Email:    "test@test.com",
		Password: "password",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	assert.Equal(t, "testuser", user.Username)
	assert.NotEqual(t, "password", user.Password)
	assert.Equal(t, models.DefaultImageURL, user.ImageURL)

	byID, err := f.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Where("username = ?", "testuser").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_Signup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
	}{
		{"empty password", SignupInput{Username: "u1", Email: "u1@test.com"}},
		{"short password", SignupInput{Username: "u1", Email: "u1@test.com", Password: "abc"}},
		{"missing username", SignupInput{Email: "u1@test.com", Password: "password"}},
		{"bad username", SignupInput{Username: "has space", Email: "u1@test.com", Password: "password"}},
		{"bad email", SignupInput{Username: "u1", Email: "not-an-email", Password: "password"}},
		{"bad image url", SignupInput{Username: "u1", Email: "u1@test.com", Password: "password", ImageURL: "ftp://x/y.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.auth.Signup(context.Background(), tt.in)
			assertAppError(t, err, models.CodeValidation)

			var count int64
			require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
			assert.Zero(t, count, "no row may be created")
		})
	}
}

func TestAuthService_Signup_Uniqueness(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "taken")

	_, err := f.auth.Signup(context.Background(), SignupInput{
		Username: "taken", Email: "other@test.com", Password: "password",
	})
	assertAppError(t, err, models.CodeConflict)

	_, err = f.auth.Signup(context.Background(), SignupInput{
		Username: "other", Email: "taken@test.com", Password: "password",
	})
	assertAppError(t, err, models.CodeConflict)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "testuser")
	ctx := context.Background()

	res, err := f.auth.Authenticate(ctx, "testuser", "password")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, AuthOK, res.Outcome)
	assert.Equal(t, user.ID, res.User.ID)

	res, err = f.auth.Authenticate(ctx, "testuser", "wrong-password")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, AuthBadPassword, res.Outcome)
	assert.Nil(t, res.User)

	res, err = f.auth.Authenticate(ctx, "nobody", "password")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, AuthUnknownUser, res.Outcome)
}

func TestAuthService_Authenticate_RepoErrorPropagates(t *testing.T) {
	repoErr := errors.New("db connection error")
	repo := new(MockUserRepository)
	repo.On("GetByUsername", mock.Anything, "someone").Return(nil, repoErr)
	svc := NewAuthService(repo, testSecret)

	res, err := svc.Authenticate(context.Background(), "someone", "password")
	assert.ErrorIs(t, err, repoErr)
	assert.False(t, res.OK())
	repo.AssertExpectations(t)
}

func TestAuthService_Signup_WithMockRepository(t *testing.T) {
	tests := []struct {
		name        string
		input       SignupInput
		mockSetup   func(repo *MockUserRepository)
		wantCode    string
		wantCreated bool
	}{
		{
			name:  "hashes before persisting",
			input: SignupInput{Username: " alice ", Email: "alice@example.com", Password: "secret1"},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Username == "alice" &&
						u.Password != "secret1" &&
						bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret1")) == nil
				})).Return(nil)
			},
			wantCreated: true,
		},
		{
			name:  "conflict from repository is returned as is",
			input: SignupInput{Username: "bob", Email: "bob@example.com", Password: "secret1"},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("Create", mock.Anything, mock.Anything).
					Return(models.NewConflictError("username already taken"))
			},
			wantCode:    models.CodeConflict,
			wantCreated: true,
		},
		{
			name:      "empty password never reaches the repository",
			input:     SignupInput{Username: "carol", Email: "carol@example.com"},
			mockSetup: func(*MockUserRepository) {},
			wantCode:  models.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.mockSetup(repo)
			svc := NewAuthService(repo, testSecret, WithBcryptCost(bcrypt.MinCost))

			user, err := svc.Signup(context.Background(), tt.input)
			if tt.wantCode != "" {
				assertAppError(t, err, tt.wantCode)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "alice", user.Username)
			}
			if tt.wantCreated {
				repo.AssertExpectations(t)
			} else {
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAuthOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", AuthOK.String())
	assert.Equal(t, "unknown_user", AuthUnknownUser.String())
	assert.Equal(t, "bad_password", AuthBadPassword.String())
}

func TestAuthService_Tokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := NewAuthService(nil, testSecret, WithClock(clock))
	user := &models.User{ID: 42, Username: "testuser"}

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	id, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(nil, "another-secret-that-is-32-chars-long", WithClock(clock))
		_, err := other.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewAuthService(nil, testSecret, WithClock(func() time.Time {
			return now.Add(TokenTTL + time.Minute)
		}))
		_, err := later.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": strconv.Itoa(42),
			"iss": "someone-else",
			"aud": TokenAudience,
			"exp": now.Add(time.Hour).Unix(),
		})
		signed, err := forged.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.ParseToken(signed)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := NewAuthService(nil, "").IssueToken(user)
		assert.Error(t, err)
	})
}
