package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/memcore/internal/db"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := "file:" + filepath.Join(t.TempDir(), "history.db")

	first, err := db.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Ping(context.Background()))
	require.NoError(t, first.Close())

	second, err := db.Open(path)
	require.NoError(t, err)
	defer second.Close()

	var versions int
	require.NoError(t, second.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 1, versions)

	var tables int
	require.NoError(t, second.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'review_history'`).Scan(&tables))
	assert.Equal(t, 1, tables)
}
