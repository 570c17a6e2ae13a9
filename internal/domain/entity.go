// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"strings"
	"time"
)

// MatchKind describes how a rule's app identity is matched against a process.
type MatchKind string

const (
	MatchExe      MatchKind = "exe"
	MatchPackage  MatchKind = "package"
	MatchShortcut MatchKind = "shortcut"
	MatchPath     MatchKind = "path"
	MatchPattern  MatchKind = "pattern"
)

// MatchKinds lists every accepted match kind.
var MatchKinds = []MatchKind{MatchExe, MatchPackage, MatchShortcut, MatchPath, MatchPattern}

// legacyMatchKinds maps names used by older clients onto current kinds.
var legacyMatchKinds = map[string]MatchKind{
	"lnk":   MatchShortcut,
	"regex": MatchPattern,
}

// ParseMatchKind validates a match kind, accepting legacy aliases.
func ParseMatchKind(s string) (MatchKind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, k := range MatchKinds {
		if string(k) == v {
			return k, nil
		}
	}
	if k, ok := legacyMatchKinds[v]; ok {
		return k, nil
	}
	return "", &ValidationError{Field: "matchKind", Reason: "unknown match kind " + quote(s)}
}

// BlockMode is the enforcement strength of a rule.
type BlockMode string

const (
	// ModeHard prevents the application from running at all.
	ModeHard BlockMode = "hard"
	// ModeSoft interrupts the application with a reminder.
	ModeSoft BlockMode = "soft"
)

// ParseBlockMode validates a block mode.
func ParseBlockMode(s string) (BlockMode, error) {
	switch BlockMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeHard:
		return ModeHard, nil
	case ModeSoft:
		return ModeSoft, nil
	}
	return "", &ValidationError{Field: "mode", Reason: "unknown block mode " + quote(s)}
}

// Stricter reports whether m is more protective than other.
func (m BlockMode) Stricter(other BlockMode) bool {
	return m == ModeHard && other != ModeHard
}

// BlockRule maps an application identity to an enforcement mode.
type BlockRule struct {
	ID          string    `json:"id"`
	AppIdentity string    `json:"appIdentity"`
	MatchKind   MatchKind `json:"matchKind"`
	Mode        BlockMode `json:"mode"`
}

// Favorite is a pinned application shown in the UI. It carries no
// enforcement semantics.
type Favorite struct {
	ID          string  `json:"id"`
	AppIdentity string  `json:"appIdentity"`
	DisplayName string  `json:"displayName"`
	PinnedOrder *int    `json:"pinnedOrder,omitempty"`
	IconHint    *string `json:"iconHint,omitempty"`
}

// Order returns the pinned order, treating unset as 0.
func (f Favorite) Order() int {
	if f.PinnedOrder == nil {
		return 0
	}
	return *f.PinnedOrder
}

// SessionStatus is a state of the session lifecycle.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusCanceled  SessionStatus = "canceled"
)

// IsActive reports whether the status makes a session "current".
func (s SessionStatus) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// IsTerminal reports whether no further transitions are accepted.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Session is a timed focus session. Times are epoch seconds (UTC).
type Session struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	DurationSecs  int64         `json:"durationSecs"`
	StartUTC      *int64        `json:"startUtc,omitempty"`
	EndUTC        *int64        `json:"endUtc,omitempty"`
	RemainingSecs *int64        `json:"remainingSecs,omitempty"`
}

// MaxSessionSecs is the longest session accepted: one week.
const MaxSessionSecs int64 = 7 * 24 * 60 * 60

// Remaining returns the seconds left at time now.
// Running sessions derive it from EndUTC; paused sessions report the
// value captured at pause time; anything else has none left.
func (s Session) Remaining(now time.Time) int64 {
	switch s.Status {
	case StatusRunning:
		if s.EndUTC == nil {
			return 0
		}
		return max(0, *s.EndUTC-now.Unix())
	case StatusPaused:
		if s.RemainingSecs == nil {
			return 0
		}
		return max(0, *s.RemainingSecs)
	}
	return 0
}

// Expired reports whether a running session has no time left at now.
// Such a session is logically completed even before the transition lands.
func (s Session) Expired(now time.Time) bool {
	return s.Status == StatusRunning && s.Remaining(now) == 0
}

// Clone returns a deep copy so callers never share pointer fields.
func (s Session) Clone() Session {
	c := s
	c.StartUTC = cloneInt64(s.StartUTC)
	c.EndUTC = cloneInt64(s.EndUTC)
	c.RemainingSecs = cloneInt64(s.RemainingSecs)
	return c
}

// EffectiveBlockEntry is one identity currently subject to enforcement.
// Derived by the resolver, never stored.
type EffectiveBlockEntry struct {
	AppIdentity string      `json:"appIdentity"`
	Mode        BlockMode   `json:"mode"`
	MatchKinds  []MatchKind `json:"matchKinds"`
}

// BlockedApp is a rule joined with the display name of its favorite.
type BlockedApp struct {
	Rule        BlockRule `json:"rule"`
	DisplayName string    `json:"displayName"`
}

// Setting is a key/value preference.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AppSummary describes a discoverable application.
type AppSummary struct {
	AppID       string `json:"appId"`
	DisplayName string `json:"displayName"`
	ExeOrTarget string `json:"exeOrTarget,omitempty"`
	IconHint    string `json:"iconHint,omitempty"`
}

// ProcessInfo is a snapshot of a running OS process.
type ProcessInfo struct {
	PID  int
	Name string
	Exe  string
}

// EnforcementResult captures what happened during a single enforcement run.
type EnforcementResult struct {
	KilledPIDs  []int
	Reminded    []string // Identities that received a soft reminder
	Errors      []error
	ExecutedAt  time.Time
	DurationMs  int64
	EntriesSeen int
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func quote(s string) string {
	return `"` + s + `"`
}
