// Package policy turns block rules into enforcement decisions.
// Resolve derives the effective block set; Matchers implement the
// Strategy pattern for deciding whether a process belongs to an identity.
package policy

import (
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Matcher defines the strategy for matching a process against an app
// identity of one match kind.
type Matcher interface {
	// Kind returns the match kind handled (e.g., "exe", "path").
	Kind() domain.MatchKind

	// Validate rejects identities that can never match.
	Validate(identity string) error

	// Match reports whether proc belongs to identity.
	Match(identity string, proc domain.ProcessInfo) bool
}
