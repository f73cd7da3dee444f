// Package testutil holds shared fixtures for package tests: throwaway SQLite
// databases and miniredis-backed Redis clients.
package testutil

import (
	"fmt"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewTestRedis starts a miniredis server and returns a client connected to it.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(mr.Addr())
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// UseTestCache points the package-level cache at a fresh miniredis for the
// duration of the test.
func UseTestCache(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, rdb := NewTestRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr, rdb
}
