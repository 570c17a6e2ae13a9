package usecase

import (
	"fmt"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/policy"
)

// BlockService answers what is blocked right now.
type BlockService struct {
	sessions  *SessionManager
	rules     domain.RuleRepository
	favorites domain.FavoriteRepository
	clock     clock.Clock
}

// NewBlockService creates a block service.
func NewBlockService(
	sessions *SessionManager,
	rules domain.RuleRepository,
	favorites domain.FavoriteRepository,
	clk clock.Clock,
) *BlockService {
	return &BlockService{sessions: sessions, rules: rules, favorites: favorites, clock: clk}
}

// Effective returns the effective block set together with the session it
// was derived from (nil when idle).
func (b *BlockService) Effective() ([]domain.EffectiveBlockEntry, *domain.Session, error) {
	session, err := b.sessions.Current()
	if err != nil {
		return nil, nil, err
	}
	rules, err := b.rules.List()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return policy.Resolve(rules, session, b.clock.Now()), session, nil
}

// Snapshot returns the effective block set in its published form.
func (b *BlockService) Snapshot() (domain.BlockSetSnapshot, error) {
	entries, session, err := b.Effective()
	if err != nil {
		return domain.BlockSetSnapshot{}, err
	}
	snap := domain.BlockSetSnapshot{
		GeneratedAt: b.clock.Now().Unix(),
		Entries:     entries,
	}
	if session != nil {
		snap.SessionID = session.ID
		snap.Status = session.Status
		snap.EndUTC = session.EndUTC
	}
	return snap, nil
}

// BlockedApps joins every rule with the display name of a favorite for
// the same identity, falling back to the identity itself.
func (b *BlockService) BlockedApps() ([]domain.BlockedApp, error) {
	rules, err := b.rules.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	favs, err := b.favorites.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	names := make(map[string]string, len(favs))
	for _, f := range favs {
		names[f.AppIdentity] = f.DisplayName
	}

	out := make([]domain.BlockedApp, 0, len(rules))
	for _, r := range rules {
		name, ok := names[r.AppIdentity]
		if !ok {
			name = r.AppIdentity
		}
		out = append(out, domain.BlockedApp{Rule: r, DisplayName: name})
	}
	return out, nil
}
