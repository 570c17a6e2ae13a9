package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/app"
	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/config"
	"github.com/eliteGoblin/focusd/focuslock/internal/daemon"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/infra"
	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the focuslock server in the foreground",
	Long: `Runs the HTTP API and the reconciler until interrupted. 'focuslock start'
runs this detached in the background.`,
	RunE: runServe,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the focuslock server in the background",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and session status",
	RunE:  runStatus,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logs := logbuf.New(cfg.Log.BufferSize)
	logger, err := config.BuildLogger(cfg.Log, logs)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(cfg.DataDir, pm)

	if alive, _ := registry.IsAlive(); alive {
		entry, _ := registry.Get()
		return fmt.Errorf("focuslock is already running (pid %d)", entry.PID)
	}

	store, err := app.OpenStore(cfg.Store, cfg.DataDir)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return err
	}
	defer store.Close()

	a := app.New(app.Options{
		Store:          store,
		ProcessManager: pm,
		Clock:          clock.Real(),
		Publisher:      infra.NewFileSnapshotPublisher(cfg.Enforcement.SnapshotPath),
		Registry:       registry,
		Logs:           logs,
		Reconciler: daemon.ReconcilerConfig{
			Interval:          cfg.Reconciler.Interval,
			HeartbeatInterval: cfg.Reconciler.Heartbeat,
		},
		Enforce: cfg.Enforcement.Enabled,
		Token:   cfg.Server.Token,
		Version: Version,
		Logger:  logger,
	})

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	if err := registry.Register(domain.ServerEntry{
		PID:        os.Getpid(),
		Addr:       listener.Addr().String(),
		AppVersion: Version,
	}); err != nil {
		listener.Close()
		return fmt.Errorf("failed to register server: %w", err)
	}
	defer func() {
		if err := registry.Clear(); err != nil {
			logger.Warn("failed to clear registry", zap.Error(err))
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		if err := a.Reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconciler stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()

	logger.Info("focuslock started",
		zap.String("addr", listener.Addr().String()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("enforcement", cfg.Enforcement.Enabled),
		zap.String("version", Version))

	if err := waitForShutdown(sigCh, serveErr, a.Shutdown, logger); err != nil {
		return err
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

// shutdownGuard vetoes a stop request.
type shutdownGuard interface {
	Allow() error
}

// waitForShutdown blocks until a signal the guard accepts arrives or the
// server fails. Refused signals are logged and ignored.
func waitForShutdown(sigCh <-chan os.Signal, serveErr <-chan error, guard shutdownGuard, logger *zap.Logger) error {
	for {
		select {
		case sig := <-sigCh:
			if err := guard.Allow(); err != nil {
				logger.Warn("refusing to stop", zap.String("signal", sig.String()), zap.Error(err))
				continue
			}
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			return nil
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			logger.Error("server failed", zap.Error(err))
			return err
		}
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := infra.NewFileRegistry(cfg.DataDir, infra.NewProcessManager())
	if alive, _ := registry.IsAlive(); alive {
		entry, _ := registry.Get()
		fmt.Printf("focuslock is already running (pid %d, %s)\n", entry.PID, entry.Addr)
		return nil
	}

	if err := daemon.StartServer(configPath); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	entry, err := daemon.WaitForServer(ctx, registry, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w (see %v)", err, cfg.Log.OutputPaths)
	}

	fmt.Println("\n=== focuslock Started ===")
	fmt.Printf("PID: %d\n", entry.PID)
	fmt.Printf("Address: %s\n", entry.Addr)
	fmt.Printf("Data: %s\n", cfg.DataDir)
	fmt.Println("=========================")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := infra.NewFileRegistry(cfg.DataDir, infra.NewProcessManager())

	fmt.Println("\n=== focuslock Status ===")

	alive, _ := registry.IsAlive()
	entry, _ := registry.Get()
	if !alive || entry == nil {
		fmt.Println("Server: NOT RUNNING")
		fmt.Println("\nRun 'focuslock start' to start it.")
		return nil
	}

	fmt.Printf("Server: RUNNING (pid %d, %s, v%s)\n", entry.PID, entry.Addr, entry.AppVersion)
	if entry.LastHeartbeat > 0 {
		lastBeat := time.Unix(entry.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}

	c := newClient(cfg, entry)
	sess, err := c.CurrentSession(cmd.Context())
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("Session: idle")
	} else {
		fmt.Printf("Session: %s %s (%s left)\n", sess.ID, sess.Status, formatSecs(sess.RemainingNowSecs))
	}

	snap, err := c.Blocks(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Blocking: %d apps\n", len(snap.Entries))
	for _, e := range snap.Entries {
		fmt.Printf("  - %s (%s)\n", e.AppIdentity, e.Mode)
	}
	fmt.Println("========================")
	return nil
}
