package database

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}

func TestMigrator_UpDown(t *testing.T) {
	url := os.Getenv("FRESHCART_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FRESHCART_TEST_DATABASE_URL not set")
	}
	db, err := Open(context.Background(), Config{URL: url})
	require.NoError(t, err)
	defer db.Close()

	m, err := NewMigrator(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second run is a no-op")

	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.False(t, dirty)

	require.NoError(t, m.Down())
}
