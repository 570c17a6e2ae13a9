package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

const (
	registryFileName = "server.json"
	registryVersion  = 1
)

// FileRegistry implements domain.ServerRegistry with a JSON file in the
// data directory. Writes are serialized with flock and land atomically.
type FileRegistry struct {
	path           string
	processManager domain.ProcessManager
	now            func() time.Time
}

// NewFileRegistry creates a server registry inside dataDir.
func NewFileRegistry(dataDir string, pm domain.ProcessManager) domain.ServerRegistry {
	return NewFileRegistryWithPath(filepath.Join(dataDir, registryFileName), pm)
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string, pm domain.ProcessManager) domain.ServerRegistry {
	return &FileRegistry{
		path:           path,
		processManager: pm,
		now:            time.Now,
	}
}

// GetRegistryPath returns the registry file path.
func (r *FileRegistry) GetRegistryPath() string {
	return r.path
}

// Register records the running server, replacing any previous entry.
func (r *FileRegistry) Register(entry domain.ServerEntry) error {
	return r.withLock(func() error {
		now := r.now().Unix()
		entry.Version = registryVersion
		if entry.StartedAt == 0 {
			entry.StartedAt = now
		}
		entry.LastHeartbeat = now
		return r.atomicWrite(&entry)
	})
}

// UpdateHeartbeat updates timestamp for liveness check.
func (r *FileRegistry) UpdateHeartbeat() error {
	return r.withLock(func() error {
		entry, err := r.Get()
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("server not registered")
		}
		entry.LastHeartbeat = r.now().Unix()
		return r.atomicWrite(entry)
	})
}

// Get returns the recorded server, or nil if none.
func (r *FileRegistry) Get() (*domain.ServerEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entry domain.ServerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return &entry, nil
}

// IsAlive checks if the recorded server PID is running.
func (r *FileRegistry) IsAlive() (bool, error) {
	entry, err := r.Get()
	if err != nil {
		return false, err
	}
	if entry == nil || entry.PID == 0 {
		return false, nil
	}
	return r.processManager.IsRunning(entry.PID), nil
}

// Clear removes the registry file.
func (r *FileRegistry) Clear() error {
	err := os.Remove(r.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// withLock runs fn holding an exclusive flock on a sidecar lock file.
func (r *FileRegistry) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// atomicWrite writes the entry to a temp file and renames it into place.
func (r *FileRegistry) atomicWrite(entry *domain.ServerEntry) error {
	return writeFileAtomic(r.path, entry, 0600)
}

// writeFileAtomic marshals v as JSON and replaces path in one rename.
func writeFileAtomic(path string, v any, perm os.FileMode) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	// Temp file is unique per process to avoid races between writers.
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.ServerRegistry.
var _ domain.ServerRegistry = (*FileRegistry)(nil)
