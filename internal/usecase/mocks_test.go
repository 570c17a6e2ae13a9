package usecase

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// fakeSessionRepo implements domain.SessionRepository in memory.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	order    []string
	activeID string
	failGet  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *fakeSessionRepo) Insert(s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Status.IsActive() && r.activeID != "" {
		return &domain.ConflictError{Resource: "session", Key: r.activeID, Reason: "active"}
	}
	r.sessions[s.ID] = s.Clone()
	r.order = append(r.order, s.ID)
	if s.Status.IsActive() {
		r.activeID = s.ID
	}
	return nil
}

func (r *fakeSessionRepo) Update(s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return &domain.NotFoundError{Resource: "session", ID: s.ID}
	}
	r.sessions[s.ID] = s.Clone()
	switch {
	case s.Status.IsActive():
		r.activeID = s.ID
	case r.activeID == s.ID:
		r.activeID = ""
	}
	return nil
}

func (r *fakeSessionRepo) Get(id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}
	c := s.Clone()
	return &c, nil
}

func (r *fakeSessionRepo) Active() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return nil, nil
	}
	c := r.sessions[r.activeID].Clone()
	return &c, nil
}

func (r *fakeSessionRepo) List() ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Session, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.sessions[r.order[i]].Clone())
	}
	return out, nil
}

func (r *fakeSessionRepo) countActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Status.IsActive() {
			n++
		}
	}
	return n
}

// fakeRuleRepo implements domain.RuleRepository in memory.
type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[string]domain.BlockRule
}

func newFakeRuleRepo(rules ...domain.BlockRule) *fakeRuleRepo {
	r := &fakeRuleRepo{rules: make(map[string]domain.BlockRule)}
	for _, rule := range rules {
		r.rules[rule.ID] = rule
	}
	return r
}

func (r *fakeRuleRepo) Insert(rule domain.BlockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rules {
		if existing.AppIdentity == rule.AppIdentity {
			return &domain.ConflictError{Resource: "block rule", Key: rule.AppIdentity, Reason: "exists"}
		}
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Update(rule domain.BlockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return &domain.NotFoundError{Resource: "block rule", ID: rule.ID}
	}
	for id, existing := range r.rules {
		if id != rule.ID && existing.AppIdentity == rule.AppIdentity {
			return &domain.ConflictError{Resource: "block rule", Key: rule.AppIdentity, Reason: "exists"}
		}
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return &domain.NotFoundError{Resource: "block rule", ID: id}
	}
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) Get(id string) (*domain.BlockRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "block rule", ID: id}
	}
	return &rule, nil
}

func (r *fakeRuleRepo) List() ([]domain.BlockRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BlockRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppIdentity < out[j].AppIdentity })
	return out, nil
}

// fakeFavoriteRepo implements domain.FavoriteRepository in memory.
type fakeFavoriteRepo struct {
	favs map[string]domain.Favorite
}

func newFakeFavoriteRepo(favs ...domain.Favorite) *fakeFavoriteRepo {
	r := &fakeFavoriteRepo{favs: make(map[string]domain.Favorite)}
	for _, f := range favs {
		r.favs[f.ID] = f
	}
	return r
}

func (r *fakeFavoriteRepo) Insert(f domain.Favorite) error { r.favs[f.ID] = f; return nil }

func (r *fakeFavoriteRepo) Update(f domain.Favorite) error {
	if _, ok := r.favs[f.ID]; !ok {
		return &domain.NotFoundError{Resource: "favorite", ID: f.ID}
	}
	r.favs[f.ID] = f
	return nil
}

func (r *fakeFavoriteRepo) Delete(id string) error {
	if _, ok := r.favs[id]; !ok {
		return &domain.NotFoundError{Resource: "favorite", ID: id}
	}
	delete(r.favs, id)
	return nil
}

func (r *fakeFavoriteRepo) Get(id string) (*domain.Favorite, error) {
	f, ok := r.favs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "favorite", ID: id}
	}
	return &f, nil
}

func (r *fakeFavoriteRepo) List() ([]domain.Favorite, error) {
	out := make([]domain.Favorite, 0, len(r.favs))
	for _, f := range r.favs {
		out = append(out, f)
	}
	return out, nil
}

// fakeSettingsRepo implements domain.SettingsRepository in memory.
type fakeSettingsRepo struct {
	values map[string]string
	err    error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: make(map[string]string)}
}

func (r *fakeSettingsRepo) Get(key string) (*domain.Setting, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	return &domain.Setting{Key: key, Value: v}, nil
}

func (r *fakeSettingsRepo) Set(s domain.Setting) error {
	if r.err != nil {
		return r.err
	}
	r.values[s.Key] = s.Value
	return nil
}

func (r *fakeSettingsRepo) List() ([]domain.Setting, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.Setting, 0, len(r.values))
	for k, v := range r.values {
		out = append(out, domain.Setting{Key: k, Value: v})
	}
	return out, nil
}

// mockProcessManager implements domain.ProcessManager for testing.
type mockProcessManager struct {
	procs      []domain.ProcessInfo
	listErr    error
	killErr    error
	killedPIDs []int
	selfPID    int
	parentPID  int
}

func (m *mockProcessManager) List() ([]domain.ProcessInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.procs, nil
}

func (m *mockProcessManager) Kill(pid int) error {
	if m.killErr != nil {
		return m.killErr
	}
	m.killedPIDs = append(m.killedPIDs, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool { return false }

func (m *mockProcessManager) GetCurrentPID() int { return m.selfPID }

func (m *mockProcessManager) GetParentPID() int { return m.parentPID }

// mockNotifier implements domain.Notifier for testing.
type mockNotifier struct {
	reminded []string
	err      error
}

func (m *mockNotifier) Remind(entry domain.EffectiveBlockEntry, procs []domain.ProcessInfo) error {
	if m.err != nil {
		return m.err
	}
	m.reminded = append(m.reminded, entry.AppIdentity)
	return nil
}

// countingTrigger implements domain.ChangeNotifier for testing.
type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger() { c.n.Add(1) }

func (c *countingTrigger) count() int { return int(c.n.Load()) }

var errBoom = errors.New("boom")
