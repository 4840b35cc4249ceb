package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/partbridge/internal/config"
)

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sqliteObject(t *testing.T, db *sql.DB, typ, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = ? AND name = ?", typ, name).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestInit_Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "libs", "components.db")
	db := openTestDB(t, path)

	assert.FileExists(t, path)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	for _, table := range []string{"components", "import_log"} {
		assert.True(t, sqliteObject(t, db, "table", table), "table %s", table)
	}
	for _, idx := range []string{"idx_components_updated", "idx_import_log_component"} {
		assert.True(t, sqliteObject(t, db, "index", idx), "index %s", idx)
	}

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestInit_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.db")
	first, err := Init(path)
	require.NoError(t, err)
	_, err = first.Exec(`INSERT INTO components (id, mpn, created_at, updated_at) VALUES ('1', 'NE555P', 1, 1)`)
	require.NoError(t, err)
	first.Close()

	db := openTestDB(t, path)
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM components").Scan(&n))
	assert.Equal(t, 1, n, "reopening must not reset data")
}

func TestInit_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.db")
	db, err := Init(path)
	require.NoError(t, err)
	require.NoError(t, SetUserVersion(db, CurrentSchemaVersion+1))
	db.Close()

	_, err = Init(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestUserVersion_RoundTrip(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "components.db"))

	require.NoError(t, SetUserVersion(db, 99))
	version, err := GetUserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 99, version)
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "components.db"))

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 3, DBMaxIdleConns: 1})
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}
