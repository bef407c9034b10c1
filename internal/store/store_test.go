package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asistencia/internal/config"
)

func exerciseMedium(t *testing.T, m Medium) {
	t.Helper()
	ctx := context.Background()

	_, found, err := m.Get(ctx, "julia_sync_url")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, "julia_sync_url", "https://script.google.com/x/exec"))
	v, found, err := m.Get(ctx, "julia_sync_url")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://script.google.com/x/exec", v)

	require.NoError(t, m.Set(ctx, "julia_sync_url", ""))
	v, found, err = m.Get(ctx, "julia_sync_url")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, v)
}

func TestMemory(t *testing.T) {
	exerciseMedium(t, NewMemory())
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "asistencia.db")
	b, err := OpenBolt(path)
	require.NoError(t, err)
	exerciseMedium(t, b)
	require.NoError(t, b.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()
	_, found, err := reopened.Get(context.Background(), "julia_sync_url")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.sqlite"))
	if err != nil && strings.Contains(err.Error(), "cgo") {
		t.Skip("sqlite3 driver needs cgo")
	}
	require.NoError(t, err)
	defer s.Close()
	exerciseMedium(t, s)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	s, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.Exec(`DELETE FROM kv_entries WHERE entry_key = 'julia_sync_url'`)
	require.NoError(t, err)
	exerciseMedium(t, s)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r := NewRedis(addr, "asistencia-test:")
	defer r.Close()
	require.True(t, r.Healthy(context.Background()))
	require.NoError(t, r.Client.Del(context.Background(), "asistencia-test:julia_sync_url").Err())
	exerciseMedium(t, r)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.App{StoreBackend: "mongo"})
	assert.Error(t, err)
}

func TestOpenBoltBackend(t *testing.T) {
	b, err := Open(context.Background(), config.App{
		StoreBackend: config.BackendBolt,
		BoltPath:     filepath.Join(t.TempDir(), "a.db"),
	})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}
