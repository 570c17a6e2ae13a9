package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// ShutdownGuard decides whether the server may stop. With strict mode on
// it refuses while a session is running or paused.
type ShutdownGuard struct {
	sessions *SessionManager
	settings *SettingsService
	logger   *zap.Logger
}

// NewShutdownGuard creates a shutdown guard.
func NewShutdownGuard(sessions *SessionManager, settings *SettingsService, logger *zap.Logger) *ShutdownGuard {
	return &ShutdownGuard{sessions: sessions, settings: settings, logger: logger}
}

// Allow returns nil when stopping is permitted, or a ConflictError naming
// the session that holds the server up.
func (g *ShutdownGuard) Allow() error {
	if !g.settings.StrictMode() {
		return nil
	}
	active, err := g.sessions.Current()
	if err != nil {
		// An unreadable store must not trap the user.
		g.logger.Warn("failed to check session before shutdown", zap.Error(err))
		return nil
	}
	if active == nil {
		return nil
	}
	return &domain.ConflictError{
		Resource: "server",
		Key:      active.ID,
		Reason:   fmt.Sprintf("strict mode is on and the session is %s", active.Status),
	}
}
