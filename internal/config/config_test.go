package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, "JULIA", cfg.BackupIdentifier)
	assert.Equal(t, 30*time.Second, cfg.SyncTimeout)
	assert.Equal(t, 2*time.Second, cfg.SyncIdleDelay)
	assert.Equal(t, 240, cfg.RateLimitPerMin)
	assert.False(t, cfg.AuthEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SYNC_TIMEOUT", "5s")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("PAIRING_CODE", "1234")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.SyncTimeout)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, "1234", cfg.PairingCode)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "mongo"}},
		{name: "postgres without url", env: map[string]string{"STORE_BACKEND": "postgres"}},
		{name: "auth without pairing code", env: map[string]string{"AUTH_ENABLED": "true"}},
		{name: "default key in production", env: map[string]string{"APP_ENV": "production", "AUTH_ENABLED": "true", "PAIRING_CODE": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromViper(newViper())
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BACKUP_IDENTIFIER=PRUEBA\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv sets the variable process-wide; t.Setenv restores it afterwards.
	t.Setenv("BACKUP_IDENTIFIER", "")
	os.Unsetenv("BACKUP_IDENTIFIER")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "PRUEBA", cfg.BackupIdentifier)
}
