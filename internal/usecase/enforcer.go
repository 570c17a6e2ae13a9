// Package usecase contains application business logic.
package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/policy"
)

// ReminderCadence supplies the gap between soft reminders for one app.
type ReminderCadence interface {
	ReminderInterval() time.Duration
}

// EnforcerImpl is the reference enforcement driver. Hard entries kill
// matching processes; soft entries send a rate-limited reminder.
type EnforcerImpl struct {
	processManager domain.ProcessManager
	matchers       *policy.Registry
	notifier       domain.Notifier
	cadence        ReminderCadence
	clock          clock.Clock
	logger         *zap.Logger

	mu         sync.Mutex
	lastRemind map[string]time.Time
}

// NewEnforcer creates the reference enforcement driver.
func NewEnforcer(
	pm domain.ProcessManager,
	matchers *policy.Registry,
	notifier domain.Notifier,
	cadence ReminderCadence,
	clk clock.Clock,
	logger *zap.Logger,
) domain.Enforcer {
	return &EnforcerImpl{
		processManager: pm,
		matchers:       matchers,
		notifier:       notifier,
		cadence:        cadence,
		clock:          clk,
		logger:         logger,
		lastRemind:     make(map[string]time.Time),
	}
}

// Enforce applies the entries once against the current process list.
func (e *EnforcerImpl) Enforce(ctx context.Context, entries []domain.EffectiveBlockEntry) (*domain.EnforcementResult, error) {
	start := e.clock.Now()

	result := &domain.EnforcementResult{
		KilledPIDs:  make([]int, 0),
		Reminded:    make([]string, 0),
		Errors:      make([]error, 0),
		ExecutedAt:  start,
		EntriesSeen: len(entries),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.forgetStale(entries)

	if len(entries) == 0 {
		return result, nil
	}

	procs, err := e.processManager.List()
	if err != nil {
		return nil, err
	}
	protected := map[int]bool{
		e.processManager.GetCurrentPID(): true,
		e.processManager.GetParentPID():  true,
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var matched []domain.ProcessInfo
		for _, p := range e.matchers.MatchEntry(entry, procs) {
			if !protected[p.PID] {
				matched = append(matched, p)
			}
		}
		if len(matched) == 0 {
			continue
		}

		switch entry.Mode {
		case domain.ModeHard:
			e.kill(entry, matched, result)
		case domain.ModeSoft:
			e.remind(entry, matched, result)
		}
	}

	result.DurationMs = e.clock.Now().Sub(start).Milliseconds()
	return result, nil
}

func (e *EnforcerImpl) kill(entry domain.EffectiveBlockEntry, procs []domain.ProcessInfo, result *domain.EnforcementResult) {
	for _, p := range procs {
		if err := e.processManager.Kill(p.PID); err != nil {
			e.logger.Warn("failed to kill process",
				zap.Int("pid", p.PID),
				zap.String("app", entry.AppIdentity),
				zap.Error(err))
			result.Errors = append(result.Errors, err)
			continue
		}
		e.logger.Info("killed process",
			zap.String("app", entry.AppIdentity),
			zap.Int("pid", p.PID),
			zap.String("name", p.Name))
		result.KilledPIDs = append(result.KilledPIDs, p.PID)
	}
}

func (e *EnforcerImpl) remind(entry domain.EffectiveBlockEntry, procs []domain.ProcessInfo, result *domain.EnforcementResult) {
	interval := e.cadence.ReminderInterval()
	if interval <= 0 {
		return
	}
	now := e.clock.Now()
	if last, ok := e.lastRemind[entry.AppIdentity]; ok && now.Sub(last) < interval {
		return
	}

	if err := e.notifier.Remind(entry, procs); err != nil {
		e.logger.Warn("failed to send reminder",
			zap.String("app", entry.AppIdentity),
			zap.Error(err))
		result.Errors = append(result.Errors, err)
		return
	}
	e.lastRemind[entry.AppIdentity] = now
	result.Reminded = append(result.Reminded, entry.AppIdentity)
}

// forgetStale drops reminder history for apps no longer blocked, so the
// next session reminds straight away.
func (e *EnforcerImpl) forgetStale(entries []domain.EffectiveBlockEntry) {
	for app := range e.lastRemind {
		if _, ok := policy.Lookup(entries, app); !ok {
			delete(e.lastRemind, app)
		}
	}
}

// Ensure EnforcerImpl implements domain.Enforcer.
var _ domain.Enforcer = (*EnforcerImpl)(nil)
