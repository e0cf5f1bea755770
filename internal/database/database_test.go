package database

import (
	"io"
	"path/filepath"
	"testing"

	"leave-ledger/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{DBDriver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "leave.db")}
	db, err := Open(cfg, log)
	require.NoError(t, err)
	defer Close(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"}, logrus.New())
	assert.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=5000", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=ro", sqliteDSN("a.db?mode=ro"))
}
