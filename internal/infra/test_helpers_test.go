package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	runningPIDs map[int]bool
	killedPIDs  []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		runningPIDs: make(map[int]bool),
	}
}

func (m *mockProcessManager) List() ([]domain.ProcessInfo, error) {
	return nil, nil
}

func (m *mockProcessManager) Kill(pid int) error {
	m.killedPIDs = append(m.killedPIDs, pid)
	delete(m.runningPIDs, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) GetParentPID() int {
	return os.Getppid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

// storeBackends opens every domain.Store implementation in a temp dir so
// the same contract runs against each.
func storeBackends(t *testing.T) map[string]domain.Store {
	t.Helper()
	dir := t.TempDir()

	plain, err := OpenSQLiteStore(filepath.Join(dir, "plain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { plain.Close() })

	key, err := GenerateKey()
	require.NoError(t, err)
	encrypted, err := OpenEncryptedStore(filepath.Join(dir, "encrypted.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { encrypted.Close() })

	return map[string]domain.Store{
		"memory":    NewMemoryStore(),
		"sqlite":    plain,
		"sqlcipher": encrypted,
	}
}

func int64p(v int64) *int64 { return &v }
