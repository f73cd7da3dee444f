package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type repos struct {
	db       *gorm.DB
	users    UserRepository
	messages MessageRepository
	follows  FollowRepository
	likes    LikeRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db := testutil.NewTestDB(t)
	return repos{
		db:       db,
		users:    NewUserRepository(db),
		messages: NewMessageRepository(db),
		follows:  NewFollowRepository(db),
		likes:    NewLikeRepository(db),
	}
}

func (r repos) newUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@test.com", username),
		Password: "HASHED_PASSWORD",
	}
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

func (r repos) newMessage(t *testing.T, userID uint, text string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{UserID: userID, Text: text, Timestamp: at}
	require.NoError(t, r.messages.Create(context.Background(), m))
	return m
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	u := r.newUser(t, "testuser")
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.DefaultImageURL, u.ImageURL)

	byID, err := r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)

	byName, err := r.users.GetByUsername(ctx, "testuser")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "HASHED_PASSWORD", byName.Password)

	missing, err := r.users.GetByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = r.users.GetByID(ctx, 9999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_UniqueConflicts(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	r.newUser(t, "taken")

	err := r.users.Create(ctx, &models.User{Username: "taken", Email: "other@test.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Contains(t, err.Error(), "Username")

	err = r.users.Create(ctx, &models.User{Username: "fresh", Email: "taken@test.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Contains(t, err.Error(), "Email")
}

func TestUserRepository_UpdateProfileKeepsPassword(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	mr, _ := testutil.UseTestCache(t)

	u := r.newUser(t, "before")
	_, err := r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(fmt.Sprintf("user:%d", u.ID)))

	// The cached copy has no password; saving it must not wipe the hash.
	cached, err := r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cached.Password)
	cached.Username = "after"
	cached.Bio = "hello"
	require.NoError(t, r.users.UpdateProfile(ctx, cached))
	assert.False(t, mr.Exists(fmt.Sprintf("user:%d", u.ID)))

	fresh, err := r.users.GetByUsername(ctx, "after")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "HASHED_PASSWORD", fresh.Password)
	assert.Equal(t, "hello", fresh.Bio)
}

func TestUserRepository_Search(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	r.newUser(t, "alice")
	r.newUser(t, "alicia")
	r.newUser(t, "bob")
	r.newUser(t, "under_score")

	users, err := r.users.Search(ctx, "ALI", 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "alicia", users[1].Username)

	all, err := r.users.Search(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// "_" must match literally, not as a wildcard.
	literal, err := r.users.Search(ctx, "_", 10, 0)
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "under_score", literal[0].Username)
}

func TestMessageRepository_DetailsAndTimeline(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	u1 := r.newUser(t, "user1")
	u2 := r.newUser(t, "user2")
	u3 := r.newUser(t, "user3")

	base := time.Now().UTC().Add(-time.Hour)
	own := r.newMessage(t, u1.ID, "mine", base)
	fromU2 := r.newMessage(t, u2.ID, "user2 post", base.Add(time.Minute))
	r.newMessage(t, u3.ID, "user3 post", base.Add(2*time.Minute))

	timeline, err := r.messages.Timeline(ctx, u1.ID, 100)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, own.ID, timeline[0].ID)

	require.NoError(t, r.follows.Create(ctx, u1.ID, u2.ID))
	timeline, err = r.messages.Timeline(ctx, u1.ID, 100)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, fromU2.ID, timeline[0].ID, "newest first")
	assert.Equal(t, "user2", timeline[0].User.Username)
	for _, m := range timeline {
		assert.NotEqual(t, u3.ID, m.UserID)
	}

	require.NoError(t, r.likes.Create(ctx, u1.ID, fromU2.ID))
	msg, err := r.messages.GetByID(ctx, fromU2.ID, u1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, msg.LikesCount)
	assert.True(t, msg.Liked)

	anon, err := r.messages.GetByID(ctx, fromU2.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, anon.LikesCount)
	assert.False(t, anon.Liked)

	liked, err := r.messages.LikedBy(ctx, u1.ID, u1.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, fromU2.ID, liked[0].ID)

	count, err := r.messages.CountByUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = r.messages.GetByID(ctx, 424242, 0)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestFollowRepository_IdempotentEdges(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	u1 := r.newUser(t, "user1")
	u2 := r.newUser(t, "user2")
	u3 := r.newUser(t, "user3")

	require.NoError(t, r.follows.Create(ctx, u2.ID, u1.ID))
	require.NoError(t, r.follows.Create(ctx, u2.ID, u1.ID))
	require.NoError(t, r.follows.Create(ctx, u3.ID, u1.ID))

	followers, err := r.follows.Followers(ctx, u1.ID, 10, 0)
	require.NoError(t, err)
	names := []string{}
	for _, u := range followers {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"user2", "user3"}, names)

	following, err := r.follows.Following(ctx, u2.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "user1", following[0].Username)

	ok, err := r.follows.Exists(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.follows.Exists(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.follows.CountFollowers(ctx, u1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	removed, err := r.follows.Delete(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = r.follows.Delete(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	n, err = r.follows.CountFollowers(ctx, u1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.follows.DeleteAllFor(ctx, u1.ID))
	n, err = r.follows.CountFollowers(ctx, u1.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLikeRepository_CascadeHelpers(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	author := r.newUser(t, "author")
	fan := r.newUser(t, "fan")
	other := r.newUser(t, "other")

	m1 := r.newMessage(t, author.ID, "one", time.Now().UTC())
	m2 := r.newMessage(t, other.ID, "two", time.Now().UTC())

	require.NoError(t, r.likes.Create(ctx, fan.ID, m1.ID))
	require.NoError(t, r.likes.Create(ctx, fan.ID, m1.ID))
	require.NoError(t, r.likes.Create(ctx, fan.ID, m2.ID))
	require.NoError(t, r.likes.Create(ctx, author.ID, m2.ID))

	n, err := r.likes.CountForMessage(ctx, m1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "duplicate like is a no-op")

	require.NoError(t, r.likes.DeleteOnMessagesOf(ctx, author.ID))
	n, err = r.likes.CountForMessage(ctx, m1.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = r.likes.CountForMessage(ctx, m2.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "likes on other authors' messages survive")

	require.NoError(t, r.likes.DeleteByUser(ctx, author.ID))
	n, err = r.likes.CountByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.likes.DeleteByMessage(ctx, m2.ID))
	ok, err := r.likes.Exists(ctx, fan.ID, m2.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositories_WithTxRollsBack(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	u := r.newUser(t, "txuser")

	err := r.db.Transaction(func(tx *gorm.DB) error {
		m := &models.Message{UserID: u.ID, Text: "in tx", Timestamp: time.Now().UTC()}
		require.NoError(t, r.messages.WithTx(tx).Create(ctx, m))
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	count, err := r.messages.CountByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
