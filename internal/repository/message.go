package repository

import (
	"context"
	"errors"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines the interface for message data operations.
// viewerID selects whose like state fills Message.Liked; 0 means anonymous.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Message, error)
	ListByUser(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error)
	Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	LikedBy(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteByUser(ctx context.Context, userID uint) error
	WithTx(tx *gorm.DB) MessageRepository
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &messageRepository{db: tx}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Message, error) {
	var msg models.Message
	err := applyMessageDetails(r.db.WithContext(ctx), viewerID).
		Preload("User").
		First(&msg, "messages.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := applyMessageDetails(r.db.WithContext(ctx), viewerID).
		Preload("User").
		Where("messages.user_id = ?", userID).
		Order("messages.timestamp DESC, messages.id DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// Timeline returns messages written by userID or by anyone userID follows,
// newest first.
func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	followed := r.db.Model(&models.Follow{}).
		Select("user_being_followed_id").
		Where("user_following_id = ?", userID)

	var msgs []models.Message
	err := applyMessageDetails(r.db.WithContext(ctx), userID).
		Preload("User").
		Where("messages.user_id = ? OR messages.user_id IN (?)", userID, followed).
		Order("messages.timestamp DESC, messages.id DESC").
		Limit(clampLimit(limit)).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// LikedBy returns the messages userID has liked, most recent like first.
func (r *messageRepository) LikedBy(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := applyMessageDetails(r.db.WithContext(ctx), viewerID).
		Preload("User").
		Joins("JOIN likes lk ON lk.message_id = messages.id").
		Where("lk.user_id = ?", userID).
		Order("lk.created_at DESC, messages.id DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Message", id)
	}
	return nil
}

func (r *messageRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// applyMessageDetails adds subqueries to fetch the like count and liked status in a single query.
func applyMessageDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.Message{}).Select(
		"messages.*, "+
			"(SELECT COUNT(*) FROM likes WHERE likes.message_id = messages.id) AS likes_count, "+
			"EXISTS(SELECT 1 FROM likes WHERE likes.message_id = messages.id AND likes.user_id = ?) AS liked",
		viewerID,
	)
}
