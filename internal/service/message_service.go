package service

import (
	"context"
	"time"

	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// MessageService creates, reads and deletes warbles.
type MessageService struct {
	db          *gorm.DB
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
	publisher   EventPublisher
	now         func() time.Time
}

func NewMessageService(
	db *gorm.DB,
	messageRepo repository.MessageRepository,
	likeRepo repository.LikeRepository,
	publisher EventPublisher,
) *MessageService {
	return &MessageService{
		db:          db,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		publisher:   publisherOrNop(publisher),
		now:         time.Now,
	}
}

// CreateMessage posts text as userID. Text is trimmed and must hold 1..140 characters.
func (s *MessageService) CreateMessage(ctx context.Context, userID uint, text string) (msg *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "CreateMessage",
		attribute.Int64("user.id", int64(userID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if userID == 0 {
		return nil, models.NewUnauthorizedError("Access unauthorized.")
	}
	text, err = validation.NormalizeMessageText(text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg = &models.Message{
		Text:      text,
		Timestamp: s.now().UTC(),
		UserID:    userID,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesCreated.Inc()

	publish(ctx, s.publisher, 0, notifications.Event{
		Type:      notifications.EventMessage,
		ActorID:   userID,
		MessageID: msg.ID,
	})

	return msg, nil
}

// GetMessage loads a message with its author and like details for viewerID.
func (s *MessageService) GetMessage(ctx context.Context, id, viewerID uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id, viewerID)
}

// ListByUser returns a user's messages, newest first.
func (s *MessageService) ListByUser(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error) {
	return s.messageRepo.ListByUser(ctx, userID, viewerID, limit, offset)
}

// DeleteMessage removes a message and its likes. Only the author may delete;
// anyone else gets a FORBIDDEN error and nothing changes.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "DeleteMessage",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("message.id", int64(messageID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messages := s.messageRepo.WithTx(tx)
		msg, err := messages.GetByID(ctx, messageID, 0)
		if err != nil {
			return err
		}
		if msg.UserID != userID {
			return models.NewForbiddenError("You can only delete your own messages")
		}
		if err := s.likeRepo.WithTx(tx).DeleteByMessage(ctx, messageID); err != nil {
			return err
		}
		return messages.Delete(ctx, messageID)
	})
}
