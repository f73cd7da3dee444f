package service

import (
	"context"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// TimelineLimit is the number of messages shown on the home page.
const TimelineLimit = 100

// Authenticator checks credentials. *AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (AuthResult, error)
}

// UserService covers profiles, search, timelines and account lifecycle.
type UserService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository
	auth        Authenticator
}

type UpdateProfileInput struct {
	UserID         uint
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	// Password is the current password, required to confirm the change.
	Password string
}

func NewUserService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	auth Authenticator,
) *UserService {
	return &UserService{
		db:          db,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		auth:        auth,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the user with its counters and, for a logged-in viewer
// other than the user, the follow state in both directions.
func (s *UserService) GetProfile(ctx context.Context, id, viewerID uint) (profile *models.UserProfile, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "GetProfile",
		attribute.Int64("user.id", int64(id)),
	)
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile = &models.UserProfile{User: *user, IsSelf: viewerID == id}

	if profile.MessagesCount, err = s.messageRepo.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	if profile.FollowersCount, err = s.followRepo.CountFollowers(ctx, id); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.followRepo.CountFollowing(ctx, id); err != nil {
		return nil, err
	}
	if profile.LikesCount, err = s.likeRepo.CountByUser(ctx, id); err != nil {
		return nil, err
	}

	if viewerID != 0 && viewerID != id {
		if profile.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, id); err != nil {
			return nil, err
		}
		if profile.IsFollowedBy, err = s.followRepo.Exists(ctx, id, viewerID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// Search lists users whose username contains query. An empty query lists everyone.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.userRepo.Search(ctx, strings.TrimSpace(query), limit, offset)
}

// Timeline returns the home page feed for userID: their own messages and
// those of the users they follow, newest first.
func (s *UserService) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > TimelineLimit {
		limit = TimelineLimit
	}
	return s.messageRepo.Timeline(ctx, userID, limit)
}

// UpdateProfile changes the editable profile fields after re-checking the
// current password. A wrong password yields an UNAUTHORIZED error.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateProfile",
		attribute.Int64("user.id", int64(in.UserID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	res, err := s.auth.Authenticate(ctx, current.Username, in.Password)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, models.NewUnauthorizedError("Wrong password, please try again.")
	}

	user = res.User
	if v := strings.TrimSpace(in.Username); v != "" {
		if err := validation.ValidateUsername(v); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		if err := validation.ValidateEmail(v); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = v
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	headerURL := strings.TrimSpace(in.HeaderImageURL)
	if err := validation.ValidateImageURL(imageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(headerURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}
	if headerURL == "" {
		headerURL = models.DefaultHeaderImageURL
	}
	user.ImageURL = imageURL
	user.HeaderImageURL = headerURL

	bio := strings.TrimSpace(in.Bio)
	location := strings.TrimSpace(in.Location)
	if err := validation.ValidateProfileText(bio, location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	user.Bio = bio
	user.Location = location

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user and everything it owns in one transaction:
// likes it made, likes on its messages, follows in both directions, its
// messages and finally the user row.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "DeleteAccount",
		attribute.Int64("user.id", int64(userID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := s.likeRepo.WithTx(tx)
		if err := likes.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := likes.DeleteOnMessagesOf(ctx, userID); err != nil {
			return err
		}
		if err := s.followRepo.WithTx(tx).DeleteAllFor(ctx, userID); err != nil {
			return err
		}
		if err := s.messageRepo.WithTx(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	// A concurrent read may have refilled the cache before the commit.
	cache.InvalidateUser(ctx, userID)
	return nil
}
