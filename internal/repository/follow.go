package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores the directed follow graph.
type FollowRepository interface {
	Create(ctx context.Context, followerID, targetID uint) error
	Delete(ctx context.Context, followerID, targetID uint) (bool, error)
	Exists(ctx context.Context, followerID, targetID uint) (bool, error)
	Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	DeleteAllFor(ctx context.Context, userID uint) error
	WithTx(tx *gorm.DB) FollowRepository
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) WithTx(tx *gorm.DB) FollowRepository {
	return &followRepository{db: tx}
}

// Create inserts the edge; an existing edge is left untouched.
func (r *followRepository) Create(ctx context.Context, followerID, targetID uint) error {
	edge := &models.Follow{UserBeingFollowedID: targetID, UserFollowingID: followerID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(edge).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the edge and reports whether it existed; a missing edge is
// not an error.
func (r *followRepository) Delete(ctx context.Context, followerID, targetID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_being_followed_id = ? AND user_following_id = ?", targetID, followerID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_being_followed_id = ? AND user_following_id = ?", targetID, followerID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Followers lists the users following userID. userID itself is never listed.
func (r *followRepository) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows f ON f.user_following_id = users.id").
		Where("f.user_being_followed_id = ? AND users.id <> ?", userID, userID).
		Order("f.created_at DESC, users.id ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Following lists the users userID follows.
func (r *followRepository) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows f ON f.user_being_followed_id = users.id").
		Where("f.user_following_id = ? AND users.id <> ?", userID, userID).
		Order("f.created_at DESC, users.id ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_being_followed_id = ? AND user_following_id <> ?", userID, userID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_following_id = ? AND user_being_followed_id <> ?", userID, userID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// DeleteAllFor removes every edge touching userID, in both directions.
func (r *followRepository) DeleteAllFor(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_being_followed_id = ? OR user_following_id = ?", userID, userID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
