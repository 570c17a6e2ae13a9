package domain

import "context"

// SessionRepository stores sessions. Implementations keep an explicit
// active-session slot so "is there a current session" is O(1) and a
// second active session is rejected structurally with ConflictError.
type SessionRepository interface {
	// Insert stores a new session.
	Insert(s Session) error

	// Update replaces an existing session (NotFoundError if absent).
	Update(s Session) error

	// Get returns a session by id (NotFoundError if absent).
	Get(id string) (*Session, error)

	// Active returns the running or paused session, or nil.
	Active() (*Session, error)

	// List returns all sessions, newest first.
	List() ([]Session, error)
}

// RuleRepository stores block rules. At most one rule per app identity.
type RuleRepository interface {
	// Insert stores a new rule (ConflictError on duplicate identity).
	Insert(r BlockRule) error

	// Update replaces a rule (NotFoundError, ConflictError).
	Update(r BlockRule) error

	// Delete removes a rule (NotFoundError if absent).
	Delete(id string) error

	// Get returns a rule by id.
	Get(id string) (*BlockRule, error)

	// List returns all rules.
	List() ([]BlockRule, error)
}

// FavoriteRepository stores favorites.
type FavoriteRepository interface {
	Insert(f Favorite) error
	Update(f Favorite) error
	Delete(id string) error
	Get(id string) (*Favorite, error)
	List() ([]Favorite, error)
}

// SettingsRepository stores key/value settings.
type SettingsRepository interface {
	// Get returns the setting or nil if unset.
	Get(key string) (*Setting, error)

	// Set upserts a setting.
	Set(s Setting) error

	// List returns all stored settings.
	List() ([]Setting, error)
}

// Store bundles every repository behind one backend.
type Store interface {
	Sessions() SessionRepository
	Rules() RuleRepository
	Favorites() FavoriteRepository
	Settings() SettingsRepository

	// Close releases resources (e.g., database connection).
	Close() error
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// List returns a snapshot of running processes.
	List() ([]ProcessInfo, error)

	// Kill terminates a process by PID (SIGKILL).
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int

	// GetParentPID returns the PID of the process that started this one.
	GetParentPID() int
}

// Enforcer is a driver that applies an effective block set to the OS.
type Enforcer interface {
	// Enforce applies the given entries once. It must be idempotent.
	Enforce(ctx context.Context, entries []EffectiveBlockEntry) (*EnforcementResult, error)
}

// Notifier delivers soft-block reminders.
type Notifier interface {
	Remind(entry EffectiveBlockEntry, procs []ProcessInfo) error
}

// ChangeNotifier is told whenever rules or session state change so the
// effective block set can be recomputed.
type ChangeNotifier interface {
	Trigger()
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// ServerEntry describes the running focuslock server for discovery.
type ServerEntry struct {
	Version       int    `json:"version"`
	PID           int    `json:"pid"`
	Addr          string `json:"addr"`
	AppVersion    string `json:"app_version,omitempty"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}

// ServerRegistry lets CLI commands find the running server.
// Implementation: JSON file in the data directory guarded by flock.
type ServerRegistry interface {
	// Register records the current server.
	Register(entry ServerEntry) error

	// UpdateHeartbeat updates timestamp for liveness check.
	UpdateHeartbeat() error

	// Get returns the recorded server, or nil if none.
	Get() (*ServerEntry, error)

	// IsAlive checks if the recorded server PID is running.
	IsAlive() (bool, error)

	// Clear removes the registry file.
	Clear() error

	// GetRegistryPath returns the registry file path (for tests).
	GetRegistryPath() string
}

// BlockSetSnapshot is the published form of the effective block set.
type BlockSetSnapshot struct {
	GeneratedAt int64                 `json:"generatedAt"`
	SessionID   string                `json:"sessionId,omitempty"`
	Status      SessionStatus         `json:"status,omitempty"`
	EndUTC      *int64                `json:"endUtc,omitempty"`
	Entries     []EffectiveBlockEntry `json:"entries"`
}

// SnapshotPublisher exposes the effective block set to external drivers.
type SnapshotPublisher interface {
	Publish(snap BlockSetSnapshot) error
}
