package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "focuslock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DetectExecMode().DataDir, cfg.DataDir)
	assert.Equal(t, "127.0.0.1:7420", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.Token)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "focuslock.db"), cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.Reconciler.Interval)
	assert.Equal(t, 30*time.Second, cfg.Reconciler.Heartbeat)
	assert.False(t, cfg.Enforcement.Enabled)
	assert.Equal(t, filepath.Join(cfg.DataDir, "blockset.json"), cfg.Enforcement.SnapshotPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{filepath.Join(cfg.DataDir, "focuslock.log")}, cfg.Log.OutputPaths)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/focus
server:
  addr: 127.0.0.1:9000
  token: from-file
store:
  driver: sqlcipher
reconciler:
  interval: 2s
enforcement:
  enabled: true
log:
  level: debug
  output_paths: [stderr]
`)
	t.Setenv("FOCUSLOCK_SERVER_TOKEN", "from-env")
	t.Setenv("FOCUSLOCK_RECONCILER_HEARTBEAT", "1m")
	t.Setenv("FOCUSLOCK_STORE_KEY", "c2VjcmV0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/focus", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.Server.Token, "env overrides file")
	assert.Equal(t, DriverSQLCipher, cfg.Store.Driver)
	assert.Equal(t, "/srv/focus/focuslock.db", cfg.Store.Path)
	assert.Equal(t, "c2VjcmV0", cfg.Store.Key)
	assert.Equal(t, 2*time.Second, cfg.Reconciler.Interval)
	assert.Equal(t, time.Minute, cfg.Reconciler.Heartbeat)
	assert.True(t, cfg.Enforcement.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: 127.0.0.1:9100\n")
	t.Setenv(ConfigEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown driver",
			body:    "store:\n  driver: postgres\n",
			wantErr: "store.driver",
		},
		{
			name:    "zero interval",
			body:    "reconciler:\n  interval: 0s\n",
			wantErr: "reconciler.interval",
		},
		{
			name:    "bad level",
			body:    "log:\n  level: loud\n",
			wantErr: "log.level",
		},
		{
			name:    "malformed yaml",
			body:    "server: [",
			wantErr: "failed to parse config",
		},
		{
			name:    "bad env duration",
			body:    "",
			env:     map[string]string{"FOCUSLOCK_RECONCILER_INTERVAL": "soon"},
			wantErr: "failed to parse environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestDetectExecMode(t *testing.T) {
	mode := DetectExecMode()

	if os.Geteuid() == 0 {
		assert.Equal(t, ExecModeSystem, mode.Mode)
		assert.Equal(t, "/var/lib/focuslock", mode.DataDir)
		assert.True(t, mode.IsRoot)
	} else {
		assert.Equal(t, ExecModeUser, mode.Mode)
		assert.Equal(t, filepath.Join(RealUserHome(), ".focuslock"), mode.DataDir)
		assert.False(t, mode.IsRoot)
	}
}

func TestBuildLogger_TeesIntoBuffer(t *testing.T) {
	buf := logbuf.New(10)
	logPath := filepath.Join(t.TempDir(), "logs", "focuslock.log")

	logger, err := BuildLogger(LogConfig{Level: "warn", OutputPaths: []string{logPath}}, buf)
	require.NoError(t, err)

	logger.Info("below level")
	logger.Warn("kept")
	_ = logger.Sync()

	entries := buf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.NotContains(t, string(data), "below level")
}

func TestBuildLogger_BadLevel(t *testing.T) {
	_, err := BuildLogger(LogConfig{Level: "nope", OutputPaths: []string{"stderr"}}, nil)
	assert.Error(t, err)
}
