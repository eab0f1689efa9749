package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_DIR", "REVIEWER_SESSION_SECRET", "REVIEWER_LOG_LEVEL", "REVIEWER_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_WritesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written")
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, 24*time.Hour, cfg.PartitionMaxAge())
	assert.Zero(t, cfg.SweepInterval())

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again, "written defaults round-trip")
}

func TestLoadConfig_FileValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `
server:
  port: 9000
storage:
  uploads_directory: /srv/uploads
maintenance:
  max_age_hours: 48
  interval_minutes: 30
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/uploads", cfg.Storage.UploadsDirectory)
	assert.Equal(t, 48*time.Hour, cfg.PartitionMaxAge())
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval())
	assert.Equal(t, "debug", cfg.Logging.Level)
	// unset keys keep their defaults
	assert.Equal(t, "review_session", cfg.Session.CookieName)
	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddr())
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server: [not, a, map"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("PORT", "7070")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("REVIEWER_SESSION_SECRET", "s3cret")
	t.Setenv("REVIEWER_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestPath(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, filepath.Join("/opt/reviewer", FileName), Path("/opt/reviewer"))

	t.Setenv("REVIEWER_CONFIG", "/etc/reviewer.yaml")
	assert.Equal(t, "/etc/reviewer.yaml", Path("/opt/reviewer"))
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(root, "data")
	cfg.Storage.UploadsDirectory = filepath.Join(root, "data", "uploads")
	cfg.Logging.File = filepath.Join(root, "logs", "app.log")

	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.Storage.UploadsDirectory, filepath.Join(root, "logs")} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
