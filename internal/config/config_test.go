package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "poker.db", cfg.Database.DSN)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "*.json", cfg.Ingest.Pattern)
	assert.Equal(t, 3, cfg.Report.MinSessions)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database:
  driver: postgres
  dsn: postgres://poker@localhost/handsync
  conn_max_lifetime: 30m
report:
  min_sessions: 5
server:
  port: 9000
`), 0o644))

	t.Setenv("HANDSYNC_SERVER_PORT", "9100")
	t.Setenv("HANDSYNC_MAPPING_FILE", "/etc/handsync/map.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5, cfg.Report.MinSessions)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/etc/handsync/map.yaml", cfg.Mapping.File)
	// 未出现在文件中的项仍取默认值
	assert.Equal(t, "raw", cfg.Ingest.RawDir)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unterminated"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
