package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	opts.Log.Enabled = true
	opts.Log.Filename = tmpfile.Name()
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false

	out := setupLogs()
	assert.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, tmpfile.Name(), logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)

	opts.Log.Enabled = false
	opts.Log.Filename = ""
}

func Test_applyConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "taskvault.yml")
	err := os.WriteFile(cfgFile, []byte("store_dir: /data/tasks\nlock_timeout: 2s\nlog:\n  enabled: true\n"), 0o600)
	require.NoError(t, err)

	opts.StoreDir = ""
	opts.LockTimeout = defaultLockTimeout
	opts.Log.Enabled = false

	require.NoError(t, applyConfig(cfgFile, false))
	assert.Equal(t, "/data/tasks", opts.StoreDir)
	assert.Equal(t, 2*time.Second, opts.LockTimeout)
	assert.True(t, opts.Log.Enabled)

	opts.StoreDir = ""
	opts.LockTimeout = defaultLockTimeout
	opts.Log.Enabled = false
}

func Test_applyConfigFlagsWin(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "taskvault.yml")
	err := os.WriteFile(cfgFile, []byte("store_dir: /data/tasks\nlock_timeout: 2s\n"), 0o600)
	require.NoError(t, err)

	opts.StoreDir = "/explicit"
	opts.LockTimeout = defaultLockTimeout // given explicitly, happens to equal the default

	require.NoError(t, applyConfig(cfgFile, true))
	assert.Equal(t, "/explicit", opts.StoreDir)
	assert.Equal(t, defaultLockTimeout, opts.LockTimeout,
		"an explicit flag wins over the config file even at the default value")

	opts.StoreDir = ""
	opts.LockTimeout = defaultLockTimeout
}

func Test_applyConfigBadYaml(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "taskvault.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(":::"), 0o600))
	assert.Error(t, applyConfig(cfgFile, false))

	assert.Error(t, applyConfig(filepath.Join(t.TempDir(), "missing.yml"), false))
}

func Test_parseDue(t *testing.T) {
	ts, err := parseDue("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseDue("2026-03-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC), ts)

	_, err = parseDue("march 1st")
	assert.Error(t, err)
}

func Test_runLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	opts.StoreDir = dir
	opts.LockTimeout = time.Second
	opts.Task.Priority = "MEDIUM"
	defer func() {
		opts.StoreDir = ""
		opts.LockTimeout = defaultLockTimeout
	}()

	require.NoError(t, run([]string{"add", "Buy milk"}))
	require.NoError(t, run([]string{"list"}))
	require.NoError(t, run([]string{"complete", "1"}))
	require.NoError(t, run([]string{"delete", "1"}))

	assert.FileExists(t, filepath.Join(dir, "tasks.json"))
	_, err := os.Stat(filepath.Join(dir, "tasks.json.lock"))
	assert.True(t, os.IsNotExist(err), "lock released on shutdown")

	assert.Error(t, run([]string{"bogus"}))
	assert.Error(t, run(nil))
}
