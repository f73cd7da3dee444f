package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/repository"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

type published struct {
	userID uint
	ev     notifications.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, ev: ev})
	return nil
}

func (p *recordingPublisher) PublishBroadcast(ctx context.Context, ev notifications.Event) error {
	return p.PublishUser(ctx, 0, ev)
}

func (p *recordingPublisher) ofType(t notifications.EventType) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.ev.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	pub      *recordingPublisher
	auth     *AuthService
	messages *MessageService
	social   *SocialService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	pub := &recordingPublisher{}

	auth := NewAuthService(userRepo, testSecret, WithBcryptCost(bcrypt.MinCost))
	return &fixture{
		db:       db,
		pub:      pub,
		auth:     auth,
		messages: NewMessageService(db, messageRepo, likeRepo, pub),
		social:   NewSocialService(userRepo, messageRepo, followRepo, likeRepo, pub),
		users:    NewUserService(db, userRepo, messageRepo, followRepo, likeRepo, auth),
	}
}

func (f *fixture) signup(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.auth.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@test.com",
		Password: "password",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) post(t *testing.T, userID uint, text string) *models.Message {
	t.Helper()
	msg, err := f.messages.CreateMessage(context.Background(), userID, text)
	require.NoError(t, err)
	return msg
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, query, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) WithTx(_ *gorm.DB) repository.UserRepository {
	return m
}
