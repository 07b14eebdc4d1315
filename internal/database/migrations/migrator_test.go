package migrations_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/database/migrations"
)

func TestLoadSQLMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"900_second.sql": {Data: []byte("SELECT 2;")},
		"899_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("not a migration")},
		"nested/901.sql": {Data: []byte("SELECT 3;")},
	}

	require.NoError(t, migrations.LoadSQLMigrations(fsys))

	ids := migrations.IDs()
	assert.Contains(t, ids, "899_first")
	assert.Contains(t, ids, "900_second")
	assert.NotContains(t, ids, "README")
	assert.NotContains(t, ids, "nested/901")
	assert.True(t, indexOf(ids, "899_first") < indexOf(ids, "900_second"))
}

func TestEmbeddedMigrations(t *testing.T) {
	require.NoError(t, migrations.LoadSQLMigrations(migrations.Files))
	assert.Contains(t, migrations.IDs(), "001_schedule_entries_lookup")
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
