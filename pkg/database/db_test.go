package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "index.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&model.IndexManifest{}))
	assert.True(t, db.Migrator().HasTable(&model.IndexNode{}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
