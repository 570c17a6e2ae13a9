package policy

import (
	"sort"
	"time"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Resolve derives the effective block set from rules and session state.
// It is a pure function of its inputs: no active session, a terminal or
// scheduled session, or a running session whose time has elapsed all
// yield an empty set. Otherwise rules are grouped by app identity and the
// most protective mode wins (hard over soft). Entries are sorted by
// identity so equal inputs produce equal output.
func Resolve(rules []domain.BlockRule, session *domain.Session, now time.Time) []domain.EffectiveBlockEntry {
	if !Enforceable(session, now) {
		return []domain.EffectiveBlockEntry{}
	}

	type group struct {
		mode  domain.BlockMode
		kinds map[domain.MatchKind]struct{}
	}
	groups := make(map[string]*group)

	for _, r := range rules {
		g, ok := groups[r.AppIdentity]
		if !ok {
			g = &group{mode: domain.ModeSoft, kinds: make(map[domain.MatchKind]struct{})}
			groups[r.AppIdentity] = g
		}
		if r.Mode.Stricter(g.mode) {
			g.mode = r.Mode
		}
		g.kinds[r.MatchKind] = struct{}{}
	}

	entries := make([]domain.EffectiveBlockEntry, 0, len(groups))
	for identity, g := range groups {
		kinds := make([]domain.MatchKind, 0, len(g.kinds))
		for k := range g.kinds {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

		entries = append(entries, domain.EffectiveBlockEntry{
			AppIdentity: identity,
			Mode:        g.mode,
			MatchKinds:  kinds,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AppIdentity < entries[j].AppIdentity
	})
	return entries
}

// Enforceable reports whether a session currently warrants blocking.
func Enforceable(session *domain.Session, now time.Time) bool {
	if session == nil || !session.Status.IsActive() {
		return false
	}
	return !session.Expired(now)
}

// Lookup returns the entry for identity, if present.
func Lookup(entries []domain.EffectiveBlockEntry, identity string) (domain.EffectiveBlockEntry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].AppIdentity >= identity })
	if i < len(entries) && entries[i].AppIdentity == identity {
		return entries[i], true
	}
	return domain.EffectiveBlockEntry{}, false
}
