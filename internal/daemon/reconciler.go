// Package daemon implements the reconciler loop and server bootstrap.
package daemon

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// SessionSettler completes sessions whose time has run out.
type SessionSettler interface {
	SettleExpired() (*domain.Session, error)
}

// SnapshotSource derives the current effective block set.
type SnapshotSource interface {
	Snapshot() (domain.BlockSetSnapshot, error)
}

// ReconcilerConfig holds reconciler configuration.
type ReconcilerConfig struct {
	Interval          time.Duration // How often to reconcile without a trigger
	HeartbeatInterval time.Duration // How often to update the server registry
}

// DefaultReconcilerConfig returns default reconciler configuration.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:          5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Reconciler keeps external state in line with the effective block set.
// Each pass settles an elapsed session, recomputes the block set, publishes
// it when it changed and, if an enforcer is set, applies it. Passes run on
// a ticker and whenever Trigger is called; they never overlap.
type Reconciler struct {
	config    ReconcilerConfig
	sessions  SessionSettler
	source    SnapshotSource
	publisher domain.SnapshotPublisher
	enforcer  domain.Enforcer
	registry  domain.ServerRegistry
	logger    *zap.Logger

	trigger chan struct{}

	mu          sync.Mutex
	last        domain.BlockSetSnapshot
	fingerprint string
	published   bool
}

// NewReconciler creates a reconciler. publisher, enforcer and registry
// may be nil.
func NewReconciler(
	config ReconcilerConfig,
	sessions SessionSettler,
	source SnapshotSource,
	publisher domain.SnapshotPublisher,
	enforcer domain.Enforcer,
	registry domain.ServerRegistry,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		config:    config,
		sessions:  sessions,
		source:    source,
		publisher: publisher,
		enforcer:  enforcer,
		registry:  registry,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests a reconcile pass. It never blocks; triggers that
// arrive while one is pending are coalesced.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Last returns the most recently computed snapshot.
func (r *Reconciler) Last() domain.BlockSetSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run starts the reconciler loop.
// This blocks until context is canceled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started",
		zap.Duration("interval", r.config.Interval),
		zap.Bool("enforcement", r.enforcer != nil))

	// Reconcile immediately on startup
	r.Reconcile(ctx)

	tick := time.NewTicker(r.config.Interval)
	heartbeat := time.NewTicker(r.config.HeartbeatInterval)
	defer func() {
		tick.Stop()
		heartbeat.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping")
			return ctx.Err()

		case <-r.trigger:
			r.Reconcile(ctx)

		case <-tick.C:
			r.Reconcile(ctx)

		case <-heartbeat.C:
			if r.registry == nil {
				continue
			}
			if err := r.registry.UpdateHeartbeat(); err != nil {
				r.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// Reconcile runs one pass.
func (r *Reconciler) Reconcile(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if settled, err := r.sessions.SettleExpired(); err != nil {
		r.logger.Error("failed to settle expired session", zap.Error(err))
	} else if settled != nil {
		r.logger.Debug("settled expired session", zap.String("session", settled.ID))
	}

	snap, err := r.source.Snapshot()
	if err != nil {
		r.logger.Error("failed to compute block set", zap.Error(err))
		return
	}
	r.last = snap

	fp := fingerprint(snap)
	if fp != r.fingerprint || !r.published {
		r.logger.Info("block set changed",
			zap.String("session", snap.SessionID),
			zap.String("status", string(snap.Status)),
			zap.Int("entries", len(snap.Entries)))
		r.publish(snap)
		r.fingerprint = fp
	}

	if r.enforcer != nil {
		r.enforce(ctx, snap.Entries)
	}
}

func (r *Reconciler) publish(snap domain.BlockSetSnapshot) {
	if r.publisher == nil {
		r.published = true
		return
	}
	if err := r.publisher.Publish(snap); err != nil {
		// Retried on the next pass.
		r.logger.Error("failed to publish block set", zap.Error(err))
		r.published = false
		return
	}
	r.published = true
}

func (r *Reconciler) enforce(ctx context.Context, entries []domain.EffectiveBlockEntry) {
	result, err := r.enforcer.Enforce(ctx, entries)
	if err != nil {
		r.logger.Error("enforcement failed", zap.Error(err))
		return
	}
	if len(result.KilledPIDs) > 0 || len(result.Reminded) > 0 || len(result.Errors) > 0 {
		r.logger.Info("enforcement completed",
			zap.Int("processes_killed", len(result.KilledPIDs)),
			zap.Strings("reminded", result.Reminded),
			zap.Int("errors", len(result.Errors)),
			zap.Int64("duration_ms", result.DurationMs))
	}
}

// fingerprint identifies a snapshot by content, ignoring when it was made.
func fingerprint(snap domain.BlockSetSnapshot) string {
	snap.GeneratedAt = 0
	data, _ := json.Marshal(snap)
	return string(data)
}

// Ensure Reconciler implements domain.ChangeNotifier.
var _ domain.ChangeNotifier = (*Reconciler)(nil)
