package policy

import (
	"regexp"
	"sync"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// PatternMatcher matches a case-insensitive regular expression against
// the process name or executable path. Compiled patterns are cached.
type PatternMatcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewPatternMatcher creates a pattern matcher with an empty cache.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{cache: make(map[string]*regexp.Regexp)}
}

func (m *PatternMatcher) Kind() domain.MatchKind { return domain.MatchPattern }

func (m *PatternMatcher) Validate(identity string) error {
	re, err := regexp.Compile("(?i)" + identity)
	if err != nil {
		return &domain.ValidationError{Field: "appIdentity", Reason: "invalid pattern: " + err.Error()}
	}
	// A pattern that matches "" matches every process.
	if re.MatchString("") {
		return &domain.ValidationError{Field: "appIdentity", Reason: "pattern must not match an empty name"}
	}
	return nil
}

func (m *PatternMatcher) Match(identity string, proc domain.ProcessInfo) bool {
	re := m.compile(identity)
	if re == nil {
		return false
	}
	return re.MatchString(proc.Name) || (proc.Exe != "" && re.MatchString(proc.Exe))
}

func (m *PatternMatcher) compile(identity string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.cache[identity]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + identity)
	if err != nil {
		re = nil
	}
	m.cache[identity] = re
	return re
}
