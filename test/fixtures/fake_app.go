// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// FakeApp is a long-running process with a chosen name, standing in for a
// distracting application. It is a renamed copy of sleep(1).
type FakeApp struct {
	Dir  string
	Name string

	cmd  *exec.Cmd
	done chan error
}

// NewFakeApp creates a fake app named name inside dir.
func NewFakeApp(dir, name string) *FakeApp {
	return &FakeApp{Dir: dir, Name: name}
}

// Path returns the fake app's executable path.
func (f *FakeApp) Path() string {
	return filepath.Join(f.Dir, f.Name)
}

// Start copies sleep(1) into place and runs it.
func (f *FakeApp) Start() error {
	src, err := exec.LookPath("sleep")
	if err != nil {
		return fmt.Errorf("sleep not found: %w", err)
	}
	if err := copyExecutable(src, f.Path()); err != nil {
		return err
	}

	f.cmd = exec.Command(f.Path(), "300")
	if err := f.cmd.Start(); err != nil {
		return err
	}
	f.done = make(chan error, 1)
	go func() { f.done <- f.cmd.Wait() }()
	return nil
}

// PID returns the running process id, or 0 before Start.
func (f *FakeApp) PID() int {
	if f.cmd == nil || f.cmd.Process == nil {
		return 0
	}
	return f.cmd.Process.Pid
}

// Exited reports whether the process ended within timeout.
func (f *FakeApp) Exited(timeout time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stop kills the process if it is still running.
func (f *FakeApp) Stop() {
	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
