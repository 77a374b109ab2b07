package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "out", cfg.Schedule.OutDir)
	assert.Equal(t, []int{7, 14, 28}, cfg.Schedule.LookaheadDays)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Metrics.IsEnabled())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "siteplan.yaml", `
log:
  level: debug
  format: console
schedule:
  out_dir: reports
  lookahead_days: [3, 21]
server:
  port: 9000
metrics:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "reports", cfg.Schedule.OutDir)
	assert.Equal(t, []int{3, 21}, cfg.Schedule.LookaheadDays)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Metrics.IsEnabled())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "siteplan.json", `{"server": {"port": 7070, "max_upload_mb": 4}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.MaxUploadMB)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SITEPLAN_SCHEDULE__OUT_DIR", "from-env")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Schedule.OutDir)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "siteplan.toml", "x = 1"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "schedule:\n  lookahead_days: [0]\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad-log.yaml", "log:\n  level: loud\n"))
	require.Error(t, err)
}
