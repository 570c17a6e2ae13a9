package policy

import (
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// ExeMatcher matches by executable name, ignoring case and a ".exe" suffix.
type ExeMatcher struct{}

func (ExeMatcher) Kind() domain.MatchKind { return domain.MatchExe }

func (ExeMatcher) Validate(identity string) error {
	if strings.ContainsAny(identity, `/\`) {
		return &domain.ValidationError{Field: "appIdentity", Reason: "exe identity must be a bare executable name"}
	}
	return nil
}

func (ExeMatcher) Match(identity string, proc domain.ProcessInfo) bool {
	want := trimExe(identity)
	if strings.EqualFold(trimExe(proc.Name), want) {
		return true
	}
	return proc.Exe != "" && strings.EqualFold(trimExe(baseName(proc.Exe)), want)
}

// PackageMatcher matches a package family name (e.g. a Windows Store
// package or a macOS bundle id) appearing in the executable path.
type PackageMatcher struct{}

func (PackageMatcher) Kind() domain.MatchKind { return domain.MatchPackage }

func (PackageMatcher) Validate(identity string) error { return nil }

func (PackageMatcher) Match(identity string, proc domain.ProcessInfo) bool {
	if proc.Exe == "" {
		return false
	}
	return strings.Contains(strings.ToLower(proc.Exe), strings.ToLower(identity))
}

// ShortcutMatcher matches a launcher shortcut (.lnk, .desktop, .app) by
// its base name against the process name.
type ShortcutMatcher struct{}

func (ShortcutMatcher) Kind() domain.MatchKind { return domain.MatchShortcut }

func (ShortcutMatcher) Validate(identity string) error { return nil }

func (ShortcutMatcher) Match(identity string, proc domain.ProcessInfo) bool {
	name := baseName(identity)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" {
		return false
	}
	return strings.EqualFold(trimExe(proc.Name), name)
}

func trimExe(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name[:len(name)-4]
	}
	return name
}

// baseName handles both slash styles regardless of the host OS.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
