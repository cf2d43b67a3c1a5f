// Package testsupport builds isolated databases and fixtures for tests.
package testsupport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/shashiranjanraj/shopkart/database/migrations"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/migration"
)

// NewDB returns a migrated in-memory SQLite database private to t.
// The pool is pinned to one connection so the memory database survives
// for the life of the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = migration.New(db).Run()
	require.NoError(t, err)
	return db
}
