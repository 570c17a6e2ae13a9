// Package app assembles focuslock from its parts.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/api"
	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/config"
	"github.com/eliteGoblin/focusd/focuslock/internal/daemon"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/infra"
	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
	"github.com/eliteGoblin/focusd/focuslock/internal/policy"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

// Options are the dependencies of an App. Publisher, Registry and Logs
// may be nil.
type Options struct {
	Store          domain.Store
	ProcessManager domain.ProcessManager
	Clock          clock.Clock
	Publisher      domain.SnapshotPublisher
	Registry       domain.ServerRegistry
	Logs           *logbuf.Buffer

	Reconciler daemon.ReconcilerConfig
	Enforce    bool
	Token      string
	Version    string
	Logger     *zap.Logger
}

// App is a wired focuslock instance.
type App struct {
	Services   api.Services
	Reconciler *daemon.Reconciler
	Handler    http.Handler
	Shutdown   *usecase.ShutdownGuard
}

// New wires services, the reconciler and the HTTP router.
func New(opts Options) *App {
	logger := opts.Logger
	matchers := policy.NewRegistry()

	sessions := usecase.NewSessionManager(opts.Store.Sessions(), opts.Clock, logger.Named("sessions"))
	settings := usecase.NewSettingsService(opts.Store.Settings(), logger.Named("settings"))
	rules := usecase.NewRuleService(opts.Store.Rules(), settings, matchers, logger.Named("rules"))
	favorites := usecase.NewFavoriteService(opts.Store.Favorites(), logger.Named("favorites"))
	blocks := usecase.NewBlockService(sessions, opts.Store.Rules(), opts.Store.Favorites(), opts.Clock)

	var enforcer domain.Enforcer
	if opts.Enforce {
		notifier := infra.NewLogNotifier(logger.Named("reminders"))
		enforcer = usecase.NewEnforcer(opts.ProcessManager, matchers, notifier, settings, opts.Clock, logger.Named("enforcer"))
	}

	reconciler := daemon.NewReconciler(
		opts.Reconciler,
		sessions,
		blocks,
		opts.Publisher,
		enforcer,
		opts.Registry,
		logger.Named("reconciler"),
	)
	sessions.SetChangeNotifier(reconciler)
	rules.SetChangeNotifier(reconciler)

	svc := api.Services{
		Sessions:  sessions,
		Rules:     rules,
		Favorites: favorites,
		Settings:  settings,
		Blocks:    blocks,
		Apps:      usecase.NewAppCatalog(opts.ProcessManager),
		Logs:      opts.Logs,
		Clock:     opts.Clock,
		Version:   opts.Version,
	}

	return &App{
		Services:   svc,
		Reconciler: reconciler,
		Handler:    api.NewRouter(svc, opts.Token, logger.Named("api")),
		Shutdown:   usecase.NewShutdownGuard(sessions, settings, logger.Named("shutdown")),
	}
}

// OpenStore opens the backend selected by cfg. sqlcipher keys live in
// dataDir and are generated on first use.
func OpenStore(cfg config.StoreConfig, dataDir string) (domain.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return infra.NewMemoryStore(), nil
	case config.DriverSQLite:
		return infra.OpenSQLiteStore(cfg.Path)
	case config.DriverSQLCipher:
		key, err := infra.EnsureKey(infra.KeyProviderFor(cfg.Key, dataDir))
		if err != nil {
			return nil, fmt.Errorf("failed to load store key: %w", err)
		}
		return infra.OpenEncryptedStore(cfg.Path, key)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
