package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Session transition names, used in errors and logs.
const (
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

// SessionManager owns the single current focus session.
//
// Every operation runs read, validate, write under one mutex, so two
// concurrent creates can never both succeed and a pause can never
// interleave with a cancel. Before evaluating an operation the manager
// settles a running session whose time has elapsed into completed.
type SessionManager struct {
	mu     sync.Mutex
	repo   domain.SessionRepository
	clock  clock.Clock
	notify domain.ChangeNotifier
	newID  func() string
	logger *zap.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(repo domain.SessionRepository, clk clock.Clock, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		repo:   repo,
		clock:  clk,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// SetChangeNotifier registers the receiver of state change signals.
func (m *SessionManager) SetChangeNotifier(n domain.ChangeNotifier) {
	m.mu.Lock()
	m.notify = n
	m.mu.Unlock()
}

// Create starts a new running session of the given length.
func (m *SessionManager) Create(durationSecs int64) (*domain.Session, error) {
	if durationSecs <= 0 {
		return nil, &domain.ValidationError{Field: "durationSecs", Reason: "must be greater than zero"}
	}
	if durationSecs > domain.MaxSessionSecs {
		return nil, &domain.ValidationError{
			Field:  "durationSecs",
			Reason: fmt.Sprintf("must be at most %d", domain.MaxSessionSecs),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if _, err := m.settleLocked(now); err != nil {
		return nil, err
	}

	active, err := m.repo.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}
	if active != nil {
		return nil, &domain.ConflictError{
			Resource: "session",
			Key:      active.ID,
			Reason:   fmt.Sprintf("a session is already %s", active.Status),
		}
	}

	start := now.Unix()
	end := start + durationSecs
	s := domain.Session{
		ID:           m.newID(),
		Status:       domain.StatusRunning,
		DurationSecs: durationSecs,
		StartUTC:     &start,
		EndUTC:       &end,
	}
	if err := m.repo.Insert(s); err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.Info("session started",
		zap.String("session", s.ID),
		zap.Int64("duration_secs", durationSecs),
		zap.Int64("end_utc", end))
	m.changed()

	out := s.Clone()
	return &out, nil
}

// Current returns the running or paused session, or nil if none.
func (m *SessionManager) Current() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.settleLocked(m.clock.Now()); err != nil {
		return nil, err
	}
	active, err := m.repo.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}
	return active, nil
}

// Get returns a session by id.
func (m *SessionManager) Get(id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.settleLocked(m.clock.Now()); err != nil {
		return nil, err
	}
	return m.repo.Get(id)
}

// List returns the session history, newest first.
func (m *SessionManager) List() ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.settleLocked(m.clock.Now()); err != nil {
		return nil, err
	}
	sessions, err := m.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Pause freezes a running session's remaining time.
func (m *SessionManager) Pause(id string) (*domain.Session, error) {
	return m.transition(id, ActionPause, func(s *domain.Session, now time.Time) error {
		if s.Status != domain.StatusRunning {
			return invalid(s, ActionPause, "only running sessions can be paused")
		}
		remaining := s.Remaining(now)
		s.Status = domain.StatusPaused
		s.RemainingSecs = &remaining
		return nil
	})
}

// Resume restarts a paused session with the time it had left.
func (m *SessionManager) Resume(id string) (*domain.Session, error) {
	return m.transition(id, ActionResume, func(s *domain.Session, now time.Time) error {
		if s.Status != domain.StatusPaused {
			return invalid(s, ActionResume, "only paused sessions can be resumed")
		}
		start := now.Unix()
		end := start + s.Remaining(now)
		s.Status = domain.StatusRunning
		s.StartUTC = &start
		s.EndUTC = &end
		s.RemainingSecs = nil
		return nil
	})
}

// Complete finishes a running session whose time has run out. A session
// already completed is returned as is.
func (m *SessionManager) Complete(id string) (*domain.Session, error) {
	return m.transition(id, ActionComplete, func(s *domain.Session, now time.Time) error {
		if s.Status != domain.StatusRunning {
			return invalid(s, ActionComplete, "only running sessions can be completed")
		}
		if left := s.Remaining(now); left > 0 {
			return invalid(s, ActionComplete, fmt.Sprintf("%ds remaining", left))
		}
		s.Status = domain.StatusCompleted
		s.RemainingSecs = nil
		return nil
	})
}

// Cancel abandons a running or paused session.
func (m *SessionManager) Cancel(id string) (*domain.Session, error) {
	return m.transition(id, ActionCancel, func(s *domain.Session, now time.Time) error {
		if !s.Status.IsActive() {
			return invalid(s, ActionCancel, "only running or paused sessions can be canceled")
		}
		end := now.Unix()
		s.Status = domain.StatusCanceled
		s.EndUTC = &end
		s.RemainingSecs = nil
		return nil
	})
}

// Apply runs the transition named by action.
func (m *SessionManager) Apply(id, action string) (*domain.Session, error) {
	switch action {
	case ActionPause:
		return m.Pause(id)
	case ActionResume:
		return m.Resume(id)
	case ActionComplete:
		return m.Complete(id)
	case ActionCancel:
		return m.Cancel(id)
	}
	return nil, &domain.ValidationError{Field: "action", Reason: "unknown session action " + fmt.Sprintf("%q", action)}
}

// SettleExpired completes the current session if its time has elapsed.
// It returns the settled session, or nil if nothing changed.
func (m *SessionManager) SettleExpired() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settleLocked(m.clock.Now())
}

// transition loads a session, applies fn to a copy, and stores the result.
// A failing fn leaves the stored session untouched.
func (m *SessionManager) transition(id, action string, fn func(s *domain.Session, now time.Time) error) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if _, err := m.settleLocked(now); err != nil {
		return nil, err
	}

	s, err := m.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s.Status == domain.StatusCompleted && action == ActionComplete {
		// Completion happens when time runs out, whoever settles it first.
		// Completing again reports the stored session unchanged.
		return s, nil
	}
	if s.Status.IsTerminal() {
		return nil, invalid(s, action, "session has ended")
	}

	from := s.Status
	if err := fn(s, now); err != nil {
		return nil, err
	}
	if err := m.repo.Update(*s); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	m.logger.Info("session transition",
		zap.String("session", s.ID),
		zap.String("action", action),
		zap.String("from", string(from)),
		zap.String("to", string(s.Status)))
	m.changed()

	out := s.Clone()
	return &out, nil
}

// settleLocked completes the active session if it is running with no
// time left. Caller must hold m.mu.
func (m *SessionManager) settleLocked(now time.Time) (*domain.Session, error) {
	active, err := m.repo.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}
	if active == nil || !active.Expired(now) {
		return nil, nil
	}

	active.Status = domain.StatusCompleted
	active.RemainingSecs = nil
	if err := m.repo.Update(*active); err != nil {
		return nil, fmt.Errorf("failed to complete expired session: %w", err)
	}

	m.logger.Info("session completed",
		zap.String("session", active.ID),
		zap.Int64("duration_secs", active.DurationSecs))
	m.changed()

	out := active.Clone()
	return &out, nil
}

func (m *SessionManager) changed() {
	if m.notify != nil {
		m.notify.Trigger()
	}
}

func invalid(s *domain.Session, action, reason string) error {
	return &domain.InvalidTransitionError{
		SessionID: s.ID,
		From:      s.Status,
		Action:    action,
		Reason:    reason,
	}
}
