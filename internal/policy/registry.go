package policy

import (
	"fmt"
	"strings"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Registry holds one matcher per match kind.
type Registry struct {
	matchers map[domain.MatchKind]Matcher
}

// NewRegistry creates a registry with all default matchers.
func NewRegistry() *Registry {
	return NewRegistryWithMatchers(
		ExeMatcher{},
		PackageMatcher{},
		ShortcutMatcher{},
		NewPathMatcher(),
		NewPatternMatcher(),
	)
}

// NewRegistryWithMatchers creates a registry with custom matchers (for testing).
func NewRegistryWithMatchers(matchers ...Matcher) *Registry {
	r := &Registry{
		matchers: make(map[domain.MatchKind]Matcher),
	}
	for _, m := range matchers {
		r.Register(m)
	}
	return r
}

// Register adds a matcher to the registry.
func (r *Registry) Register(m Matcher) {
	r.matchers[m.Kind()] = m
}

// Get returns the matcher for a kind.
func (r *Registry) Get(kind domain.MatchKind) (Matcher, bool) {
	m, ok := r.matchers[kind]
	return m, ok
}

// ValidateRule checks that a rule's identity is usable for its kind.
func (r *Registry) ValidateRule(rule domain.BlockRule) error {
	if strings.TrimSpace(rule.AppIdentity) == "" {
		return &domain.ValidationError{Field: "appIdentity", Reason: "must not be empty"}
	}
	m, ok := r.Get(rule.MatchKind)
	if !ok {
		return &domain.ValidationError{Field: "matchKind", Reason: fmt.Sprintf("no matcher for %q", rule.MatchKind)}
	}
	return m.Validate(rule.AppIdentity)
}

// MatchEntry returns the processes belonging to an effective entry under
// any of its match kinds.
func (r *Registry) MatchEntry(entry domain.EffectiveBlockEntry, procs []domain.ProcessInfo) []domain.ProcessInfo {
	var found []domain.ProcessInfo
	for _, p := range procs {
		for _, kind := range entry.MatchKinds {
			m, ok := r.matchers[kind]
			if ok && m.Match(entry.AppIdentity, p) {
				found = append(found, p)
				break
			}
		}
	}
	return found
}
