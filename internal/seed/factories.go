// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded user logs in with.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// bcrypt hash of opts.Password, computed once
	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	opts = opts.withDefaults()

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	gofakeit.Seed(opts.RandomSeed)
	return &Factory{
		db: db,
		// #nosec G404: acceptable for seeding
		rng:          rand.New(rand.NewSource(opts.RandomSeed)),
		opts:         opts,
		passwordHash: string(hash),
		nextID:       1000,
	}, nil
}

// BuildUser constructs a user with fake profile data but does not persist it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999))
	if len(username) > validation.MaxUsernameLength {
		username = username[:validation.MaxUsernameLength]
	}

	user := &models.User{
		Username:       username,
		Email:          strings.ToLower(username) + "@example.com",
		Password:       f.passwordHash,
		ImageURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		HeaderImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/1200/300", gofakeit.UUID()),
		Bio:            gofakeit.Sentence(10),
		Location:       gofakeit.City(),
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage constructs a message by user with a timestamp spread over
// the last MaxDays days. It does not persist it.
func (f *Factory) BuildMessage(user *models.User, overrides ...func(*models.Message)) *models.Message {
	daysBack := f.rng.Intn(f.opts.MaxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)

	msg := &models.Message{
		Text:   truncateRunes(gofakeit.Sentence(f.rng.Intn(15)+3), validation.MaxMessageLength),
		UserID: user.ID,
		Timestamp: time.Now().UTC().Add(-time.Duration(daysBack)*24*time.Hour -
			time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute),
	}

	for _, override := range overrides {
		override(msg)
	}
	return msg
}

// CreateMessagesBatch persists multiple messages in a single DB call when possible.
func (f *Factory) CreateMessagesBatch(ctx context.Context, msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, m := range msgs {
			f.nextID++
			m.ID = f.nextID
		}
		log.Printf("[dry-run] CreateMessagesBatch: %d messages (no DB write)", len(msgs))
		return nil
	}
	return f.db.WithContext(ctx).Omit("User").CreateInBatches(msgs, 100).Error
}

// CreateFollow persists follower following target.
func (f *Factory) CreateFollow(ctx context.Context, follower, target *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.WithContext(ctx).Create(&models.Follow{
		UserFollowingID:     follower.ID,
		UserBeingFollowedID: target.ID,
	}).Error
}

// CreateLike persists a like from user on msg.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, msg *models.Message) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.WithContext(ctx).Create(&models.Like{
		UserID:    user.ID,
		MessageID: msg.ID,
	}).Error
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
