package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	cache.SetClient(nil)
	return gormDB, mock
}

func TestUserRepository_GetByID_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedName  string
		expectedError string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@test.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedName: "testuser",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedError: models.CodeNotFound,
		},
		{
			name:   "Database Failure",
			userID: 5,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(5, 1).
					WillReturnError(errors.New("connection refused"))
			},
			expectedError: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError != "" {
				assert.True(t, models.IsCode(err, tt.expectedError), "got %v", err)
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedName, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create_DuplicateKeyIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_username" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "dup", Email: "dup@test.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Username already taken", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_Delete_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes" WHERE user_id = $1 AND message_id = $2`)).
		WithArgs(3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Delete(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, isUniqueConstraintError(errors.New("pq: duplicate key value violates unique constraint")))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueConstraintError(errors.New("connection reset")))
	assert.False(t, isUniqueConstraintError(nil))
}
