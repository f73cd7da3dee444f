package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"warbler/internal/models"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers        int
	MessagesPerUser int
	// Upper bounds; each user gets a random count in [0, max].
	MaxFollows int
	MaxLikes   int
	// Messages are spread over the last MaxDays days.
	MaxDays     int
	Password    string
	BcryptCost  int
	RandomSeed  int64
	ShouldClean bool
	DryRun      bool
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	return o
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seeder populates a database with a connected demo network.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: f.opts, factory: f}, nil
}

// ClearAll deletes every like, follow, message and user, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		return nil
	}
	log.Println("🗑️  Clearing existing data...")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run seeds users, then their messages, then follows and likes between them.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	log.Printf("🌱 Seeding %d users with %d messages each...", s.opts.NumUsers, s.opts.MessagesPerUser)

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.seedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	summary := &Summary{Users: len(users)}
	log.Printf("✓ %d users created", len(users))

	msgs, err := s.seedMessages(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages: %w", err)
	}
	summary.Messages = len(msgs)
	log.Printf("✓ %d messages created", len(msgs))

	if summary.Follows, err = s.seedFollows(ctx, users); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows created", summary.Follows)

	if summary.Likes, err = s.seedLikes(ctx, users, msgs); err != nil {
		return nil, fmt.Errorf("failed to create likes: %w", err)
	}
	log.Printf("✓ %d likes created", summary.Likes)

	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)

	// Always include a known account so the demo can be logged into.
	if s.opts.NumUsers > 0 {
		demo, err := s.factory.CreateUser(ctx, func(u *models.User) {
			u.Username = "demo"
			u.Email = "demo@example.com"
			u.Bio = "Kicking the tyres."
		})
		if err != nil {
			return nil, err
		}
		users = append(users, demo)
	}

	for i := len(users); i < s.opts.NumUsers; i++ {
		// The index suffix keeps fake usernames unique.
		suffix := fmt.Sprintf("_%d", i)
		user, err := s.factory.CreateUser(ctx, func(u *models.User) {
			base := u.Username
			if room := validation.MaxUsernameLength - len(suffix); len(base) > room {
				base = base[:room]
			}
			u.Username = base + suffix
			u.Email = fmt.Sprintf("user%d@example.com", i)
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)

		if i%100 == 0 && i > 0 {
			log.Printf("Created %d users...", i)
		}
	}
	return users, nil
}

func (s *Seeder) seedMessages(ctx context.Context, users []*models.User) ([]*models.Message, error) {
	msgs := make([]*models.Message, 0, len(users)*s.opts.MessagesPerUser)
	for _, u := range users {
		for i := 0; i < s.opts.MessagesPerUser; i++ {
			msgs = append(msgs, s.factory.BuildMessage(u))
		}
	}
	if err := s.factory.CreateMessagesBatch(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) (int, error) {
	if len(users) < 2 || s.opts.MaxFollows <= 0 {
		return 0, nil
	}
	created := 0
	for _, follower := range users {
		for _, target := range s.pickUsers(users, follower, s.opts.MaxFollows) {
			if err := s.factory.CreateFollow(ctx, follower, target); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, msgs []*models.Message) (int, error) {
	if len(msgs) == 0 || s.opts.MaxLikes <= 0 {
		return 0, nil
	}
	created := 0
	for _, u := range users {
		n := s.factory.rng.Intn(s.opts.MaxLikes + 1)
		seen := make(map[uint]bool, n)
		// Bounded attempts: a user may own most of the messages.
		for attempts := 0; len(seen) < n && attempts < n*4; attempts++ {
			msg := msgs[s.factory.rng.Intn(len(msgs))]
			if msg.UserID == u.ID || seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true
			if err := s.factory.CreateLike(ctx, u, msg); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// pickUsers returns up to limit distinct users other than self.
func (s *Seeder) pickUsers(users []*models.User, self *models.User, limit int) []*models.User {
	n := s.factory.rng.Intn(limit + 1)
	if n > len(users)-1 {
		n = len(users) - 1
	}
	picked := make([]*models.User, 0, n)
	for _, idx := range s.factory.rng.Perm(len(users)) {
		if len(picked) == n {
			break
		}
		if users[idx].ID == self.ID {
			continue
		}
		picked = append(picked, users[idx])
	}
	return picked
}
