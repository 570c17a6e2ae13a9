package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// StartServer spawns a detached `serve` process from the running binary.
func StartServer(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return StartServerWithPath(executable, configPath)
}

// StartServerWithPath spawns a detached `serve` process from binaryPath.
func StartServerWithPath(binaryPath, configPath string) error {
	cmd := exec.Command(binaryPath, serverArgs(configPath)...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - the server logs to its configured outputs
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	// The child outlives us; release it so it is never waited on.
	return cmd.Process.Release()
}

func serverArgs(configPath string) []string {
	args := []string{"serve"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

// WaitForServer polls the registry until a live server is recorded or ctx
// ends.
func WaitForServer(ctx context.Context, registry domain.ServerRegistry, poll time.Duration) (*domain.ServerEntry, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		alive, err := registry.IsAlive()
		if err == nil && alive {
			return registry.Get()
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("server did not come up: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
