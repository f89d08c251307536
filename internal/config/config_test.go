package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/config"
)

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
HTTP_ADDR: ":9090"
DB_DRIVER: memory
TOKEN_TTL: 30m
CORS_ORIGINS_OFFLINE: "http://a.test, http://b.test"
`), 0o644))

	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr, "env wins over file")
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.True(t, cfg.EnableLocalAuth)
	assert.Equal(t, time.Hour, cfg.MediaURLTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	t.Run("driver", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("MODE: offline\n"), 0o644))
		t.Setenv("DB_DRIVER", "mongo")
		_, err := config.Load(path)
		require.ErrorContains(t, err, "DB_DRIVER")
	})
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
	})
	t.Run("media ttl", func(t *testing.T) {
		path := filepath.Join(dir, "media.yaml")
		require.NoError(t, os.WriteFile(path, []byte("MEDIA_URL_TTL: 0s\n"), 0o644))
		_, err := config.Load(path)
		require.ErrorContains(t, err, "MEDIA_URL_TTL")
	})
	t.Run("online needs a secret", func(t *testing.T) {
		path := filepath.Join(dir, "online.yaml")
		require.NoError(t, os.WriteFile(path, []byte("MODE: online\n"), 0o644))
		_, err := config.Load(path)
		require.ErrorContains(t, err, "AUTH_HMAC_SECRET")
	})
}
