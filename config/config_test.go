package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, PolicyOwner, cfg.AuthzPolicy)
	assert.Equal(t, FallbackEmpty, cfg.PersonalScopeFallback)
	assert.Equal(t, []string{"Low", "Med", "High"}, cfg.TaskPriorities)
	assert.Equal(t, "Med", cfg.DefaultPriority)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DB_DRIVER=postgres\nDB_HOST=db.internal\nDB_NAME=tasks\nTASK_PRIORITIES=Low,Mid,High\nDEFAULT_PRIORITY=Mid\nCORS_ALLOWED_ORIGINS=http://a.test,http://b.test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv never overrides variables that are already set, so clear them
	// through t.Setenv and let Cleanup restore the originals.
	for _, k := range []string{"DB_DRIVER", "DB_HOST", "DB_NAME", "TASK_PRIORITIES", "DEFAULT_PRIORITY", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "host=db.internal port=5432 user= password= dbname=tasks sslmode=disable", cfg.Postgres.DSN())
	assert.Equal(t, []string{"Low", "Mid", "High"}, cfg.TaskPriorities)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoadMissingEnvFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")

	_, err := Load(missing, false)
	require.NoError(t, err)

	_, err = Load(missing, true)
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "driver", key: "DB_DRIVER", value: "mysql"},
		{name: "session store", key: "SESSION_STORE", value: "memcached"},
		{name: "policy", key: "AUTHZ_POLICY", value: "admins"},
		{name: "fallback", key: "PERSONAL_SCOPE_FALLBACK", value: "mine"},
		{name: "default priority", key: "DEFAULT_PRIORITY", value: "Urgent"},
		{name: "ttl", key: "SESSION_TTL", value: "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("", false)
			require.Error(t, err)
		})
	}
}
