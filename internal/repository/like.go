package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores user-likes-message edges.
type LikeRepository interface {
	Create(ctx context.Context, userID, messageID uint) error
	Delete(ctx context.Context, userID, messageID uint) (bool, error)
	Exists(ctx context.Context, userID, messageID uint) (bool, error)
	CountForMessage(ctx context.Context, messageID uint) (int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	DeleteByMessage(ctx context.Context, messageID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
	DeleteOnMessagesOf(ctx context.Context, authorID uint) error
	WithTx(tx *gorm.DB) LikeRepository
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &likeRepository{db: tx}
}

// Create uses INSERT ... ON CONFLICT DO NOTHING so concurrent duplicate likes are harmless.
func (r *likeRepository) Create(ctx context.Context, userID, messageID uint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.Like{UserID: userID, MessageID: messageID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the like and reports whether it existed.
func (r *likeRepository) Delete(ctx context.Context, userID, messageID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) CountForMessage(ctx context.Context, messageID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("message_id = ?", messageID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) DeleteByMessage(ctx context.Context, messageID uint) error {
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteOnMessagesOf removes every like on messages written by authorID.
func (r *likeRepository) DeleteOnMessagesOf(ctx context.Context, authorID uint) error {
	authored := r.db.Model(&models.Message{}).Select("id").Where("user_id = ?", authorID)
	if err := r.db.WithContext(ctx).Where("message_id IN (?)", authored).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
