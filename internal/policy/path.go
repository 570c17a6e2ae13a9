package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// PathMatcher matches the full executable path. Identities may start
// with ~ for the user's home directory.
type PathMatcher struct {
	homeDir string
}

// NewPathMatcher creates a path matcher for the current user.
func NewPathMatcher() *PathMatcher {
	home, _ := os.UserHomeDir()
	return &PathMatcher{homeDir: home}
}

// NewPathMatcherWithHome creates a path matcher with a custom home directory (for testing).
func NewPathMatcherWithHome(homeDir string) *PathMatcher {
	return &PathMatcher{homeDir: homeDir}
}

func (m *PathMatcher) Kind() domain.MatchKind { return domain.MatchPath }

func (m *PathMatcher) Validate(identity string) error {
	expanded := m.ExpandHome(identity)
	if !filepath.IsAbs(expanded) && !strings.Contains(expanded, `:\`) {
		return &domain.ValidationError{Field: "appIdentity", Reason: "path identity must be absolute"}
	}
	return nil
}

func (m *PathMatcher) Match(identity string, proc domain.ProcessInfo) bool {
	if proc.Exe == "" {
		return false
	}
	want := filepath.Clean(m.ExpandHome(identity))
	got := filepath.Clean(proc.Exe)
	if strings.EqualFold(got, want) {
		return true
	}
	// A directory identity (e.g. an .app bundle) covers everything inside it.
	return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want)+string(filepath.Separator))
}

// ExpandHome expands ~ to the user's home directory.
func (m *PathMatcher) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(m.homeDir, path[2:])
	}
	if path == "~" {
		return m.homeDir
	}
	return path
}
