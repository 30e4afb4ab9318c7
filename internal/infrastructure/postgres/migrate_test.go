package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluff-table/bluff-table/internal/migrations"
)

func TestMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_more.sql":   {Data: []byte("SELECT 2;")},
		"0001_init.sql":   {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"nested/0003.sql": {Data: []byte("SELECT 3;")},
	}
	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_more.sql"}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_game_results.sql", files[0])
}
