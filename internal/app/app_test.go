package app

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/config"
	"github.com/eliteGoblin/focusd/focuslock/internal/daemon"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/infra"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{config.DriverMemory, false},
		{config.DriverSQLite, false},
		{config.DriverSQLCipher, false},
		{"postgres", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			dir := t.TempDir()
			store, err := OpenStore(config.StoreConfig{
				Driver: tt.driver,
				Path:   filepath.Join(dir, "focuslock.db"),
			}, dir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			_, err = store.Sessions().List()
			assert.NoError(t, err)
		})
	}
}

func TestOpenStore_SQLCipherCreatesKey(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(config.StoreConfig{
		Driver: config.DriverSQLCipher,
		Path:   filepath.Join(dir, "focuslock.db"),
	}, dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	info, err := os.Stat(infra.NewFileKeyProvider(dir).Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestOpenStore_SQLCipherConfiguredKey(t *testing.T) {
	dir := t.TempDir()
	key, err := infra.GenerateKey()
	require.NoError(t, err)
	cfg := config.StoreConfig{
		Driver: config.DriverSQLCipher,
		Path:   filepath.Join(dir, "focuslock.db"),
		Key:    base64.StdEncoding.EncodeToString(key),
	}

	store, err := OpenStore(cfg, dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoFileExists(t, infra.NewFileKeyProvider(dir).Path())

	reopened, err := infra.OpenEncryptedStore(cfg.Path, key)
	require.NoError(t, err)
	assert.NoError(t, reopened.Close())
}

type recordingPublisher struct {
	snaps []domain.BlockSetSnapshot
}

func (p *recordingPublisher) Publish(snap domain.BlockSetSnapshot) error {
	p.snaps = append(p.snaps, snap)
	return nil
}

func TestNew_MutationsReachPublisher(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	pub := &recordingPublisher{}
	a := New(Options{
		Store:          infra.NewMemoryStore(),
		ProcessManager: infra.NewProcessManager(),
		Clock:          clk,
		Publisher:      pub,
		Reconciler:     daemon.DefaultReconcilerConfig(),
		Logger:         zap.NewNop(),
	})

	_, err := a.Services.Rules.Add(usecase.RuleInput{AppIdentity: "discord", MatchKind: "exe", Mode: "hard"})
	require.NoError(t, err)
	_, err = a.Services.Sessions.Create(1500)
	require.NoError(t, err)

	a.Reconciler.Reconcile(context.Background())
	require.Len(t, pub.snaps, 1)
	require.Len(t, pub.snaps[0].Entries, 1)
	assert.Equal(t, "discord", pub.snaps[0].Entries[0].AppIdentity)

	clk.Advance(1500 * time.Second)
	a.Reconciler.Reconcile(context.Background())
	require.Len(t, pub.snaps, 2)
	assert.Empty(t, pub.snaps[1].Entries, "elapsed session empties the set")

	history, err := a.Services.Sessions.List()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, history[0].Status)
}

func TestNew_StrictModeGuardsShutdown(t *testing.T) {
	a := New(Options{
		Store:          infra.NewMemoryStore(),
		ProcessManager: infra.NewProcessManager(),
		Clock:          clock.Fake(time.Unix(1_700_000_000, 0)),
		Reconciler:     daemon.DefaultReconcilerConfig(),
		Logger:         zap.NewNop(),
	})

	_, err := a.Services.Sessions.Create(1500)
	require.NoError(t, err)
	assert.NoError(t, a.Shutdown.Allow(), "strict mode is off by default")

	_, err = a.Services.Settings.Set(usecase.SettingStrictMode, "true")
	require.NoError(t, err)
	assert.True(t, domain.IsConflict(a.Shutdown.Allow()))
}
