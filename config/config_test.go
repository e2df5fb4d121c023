package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/config"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: a file that sets nothing
	path := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	// WHEN
	conf, err := config.Load(path)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, ":8080", conf.Addr())
	assert.Equal(t, "timesheets.db", conf.Database.Path)
	assert.True(t, conf.SchedulerEnabled())
	assert.True(t, conf.RestrictSupervisors())
	assert.Equal(t, "info", conf.Log.Level)
	interval, err := conf.SchedulerInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, interval)
	assert.Equal(t, []string{"*"}, conf.Origins())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9090
  allowedorigins: "https://a.example, https://b.example"
scheduler:
  enabled: false
  interval: 15m
`), 0o600))
	t.Setenv("DB_PATH", "/tmp/ts.db")

	conf, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, conf.App.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, conf.Origins())
	assert.False(t, conf.SchedulerEnabled())
	interval, err := conf.SchedulerInterval()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, interval)
	assert.Equal(t, "/tmp/ts.db", conf.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	t.Setenv("SCHEDULER_INTERVAL", "soon")
	_, err = config.Load(path)
	assert.Error(t, err)
}
