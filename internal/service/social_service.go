package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// SocialService manages follow and like edges.
type SocialService struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository
	publisher   EventPublisher
}

func NewSocialService(
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	publisher EventPublisher,
) *SocialService {
	return &SocialService{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		publisher:   publisherOrNop(publisher),
	}
}

// Follow makes followerID follow targetID. Following twice is a no-op.
func (s *SocialService) Follow(ctx context.Context, followerID, targetID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Follow",
		attribute.Int64("user.id", int64(followerID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if followerID == targetID {
		return models.NewForbiddenError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	existed, err := s.followRepo.Exists(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if err := s.followRepo.Create(ctx, followerID, targetID); err != nil {
		return err
	}
	if existed {
		return nil
	}

	observability.SocialEdges.WithLabelValues("follow", "create").Inc()
	publish(ctx, s.publisher, targetID, notifications.Event{
		Type:      notifications.EventFollow,
		ActorID:   followerID,
		SubjectID: targetID,
	})
	return nil
}

// Unfollow removes the edge if present.
func (s *SocialService) Unfollow(ctx context.Context, followerID, targetID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Unfollow",
		attribute.Int64("user.id", int64(followerID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	removed, err := s.followRepo.Delete(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if removed {
		observability.SocialEdges.WithLabelValues("follow", "delete").Inc()
	}
	return nil
}

// IsFollowing reports whether followerID follows targetID.
func (s *SocialService) IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error) {
	if followerID == 0 || targetID == 0 {
		return false, nil
	}
	return s.followRepo.Exists(ctx, followerID, targetID)
}

// IsFollowedBy reports whether otherID follows userID.
func (s *SocialService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.IsFollowing(ctx, otherID, userID)
}

// Followers lists the users following userID.
func (s *SocialService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID, limit, offset)
}

// Following lists the users userID follows.
func (s *SocialService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID, limit, offset)
}

// Like records that userID likes messageID. Liking twice is a no-op and
// liking one's own message is FORBIDDEN.
func (s *SocialService) Like(ctx context.Context, userID, messageID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Like",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("message.id", int64(messageID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	msg, err := s.messageRepo.GetByID(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if msg.UserID == userID {
		return models.NewForbiddenError("You cannot like your own message")
	}
	if msg.Liked {
		return nil
	}
	if err := s.likeRepo.Create(ctx, userID, messageID); err != nil {
		return err
	}

	observability.SocialEdges.WithLabelValues("like", "create").Inc()
	publish(ctx, s.publisher, msg.UserID, notifications.Event{
		Type:      notifications.EventLike,
		ActorID:   userID,
		SubjectID: msg.UserID,
		MessageID: messageID,
	})
	return nil
}

// Unlike removes the like if present.
func (s *SocialService) Unlike(ctx context.Context, userID, messageID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Unlike",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("message.id", int64(messageID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.messageRepo.GetByID(ctx, messageID, 0); err != nil {
		return err
	}
	removed, err := s.likeRepo.Delete(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if removed {
		observability.SocialEdges.WithLabelValues("like", "delete").Inc()
	}
	return nil
}

// ToggleLike likes the message if userID has not liked it yet and unlikes it
// otherwise. It returns the new state.
func (s *SocialService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	liked, err := s.likeRepo.Exists(ctx, userID, messageID)
	if err != nil {
		return false, err
	}
	if liked {
		return false, s.Unlike(ctx, userID, messageID)
	}
	return true, s.Like(ctx, userID, messageID)
}

// LikedMessages lists the messages userID has liked, with like state for viewerID.
func (s *SocialService) LikedMessages(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.LikedBy(ctx, userID, viewerID, limit, offset)
}
