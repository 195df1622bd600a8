// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/markgwharry/modiniapps/internal/db/bunx"
	"github.com/markgwharry/modiniapps/internal/migrations"
)

// NewSQLite returns an in-memory SQLite database with every migration applied.
// The database is closed when the test ends.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	_, err = migrations.Apply(context.Background(), db)
	require.NoError(t, err)
	return db
}
