package infra

import (
	"sort"
	"sync"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// MemoryStore implements domain.Store in process memory. Nothing survives
// a restart.
type MemoryStore struct {
	sessions  *memSessions
	rules     *memRules
	favorites *memFavorites
	settings  *memSettings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  &memSessions{byID: make(map[string]domain.Session)},
		rules:     &memRules{byID: make(map[string]domain.BlockRule), byIdentity: make(map[string]string)},
		favorites: &memFavorites{byID: make(map[string]domain.Favorite)},
		settings:  &memSettings{values: make(map[string]string)},
	}
}

func (s *MemoryStore) Sessions() domain.SessionRepository   { return s.sessions }
func (s *MemoryStore) Rules() domain.RuleRepository         { return s.rules }
func (s *MemoryStore) Favorites() domain.FavoriteRepository { return s.favorites }
func (s *MemoryStore) Settings() domain.SettingsRepository  { return s.settings }
func (s *MemoryStore) Close() error                         { return nil }

// memSessions is an arena of sessions plus a single active-id cell.
type memSessions struct {
	mu       sync.RWMutex
	byID     map[string]domain.Session
	order    []string // insertion order
	activeID string
}

func (r *memSessions) Insert(s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; ok {
		return &domain.ConflictError{Resource: "session", Key: s.ID, Reason: "id already exists"}
	}
	if s.Status.IsActive() && r.activeID != "" {
		return &domain.ConflictError{Resource: "session", Key: r.activeID, Reason: "another session is active"}
	}
	r.byID[s.ID] = s.Clone()
	r.order = append(r.order, s.ID)
	if s.Status.IsActive() {
		r.activeID = s.ID
	}
	return nil
}

func (r *memSessions) Update(s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return &domain.NotFoundError{Resource: "session", ID: s.ID}
	}
	if s.Status.IsActive() && r.activeID != "" && r.activeID != s.ID {
		return &domain.ConflictError{Resource: "session", Key: r.activeID, Reason: "another session is active"}
	}
	r.byID[s.ID] = s.Clone()
	switch {
	case s.Status.IsActive():
		r.activeID = s.ID
	case r.activeID == s.ID:
		r.activeID = ""
	}
	return nil
}

func (r *memSessions) Get(id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}
	c := s.Clone()
	return &c, nil
}

func (r *memSessions) Active() (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.activeID == "" {
		return nil, nil
	}
	c := r.byID[r.activeID].Clone()
	return &c, nil
}

func (r *memSessions) List() ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Session, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.byID[r.order[i]].Clone())
	}
	return out, nil
}

// memRules keeps an identity index so duplicates are rejected in O(1).
type memRules struct {
	mu         sync.RWMutex
	byID       map[string]domain.BlockRule
	byIdentity map[string]string
}

func (r *memRules) Insert(rule domain.BlockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[rule.ID]; ok {
		return &domain.ConflictError{Resource: "block rule", Key: rule.ID, Reason: "id already exists"}
	}
	if _, ok := r.byIdentity[rule.AppIdentity]; ok {
		return duplicateRule(rule.AppIdentity)
	}
	r.byID[rule.ID] = rule
	r.byIdentity[rule.AppIdentity] = rule.ID
	return nil
}

func (r *memRules) Update(rule domain.BlockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[rule.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "block rule", ID: rule.ID}
	}
	if owner, ok := r.byIdentity[rule.AppIdentity]; ok && owner != rule.ID {
		return duplicateRule(rule.AppIdentity)
	}
	delete(r.byIdentity, old.AppIdentity)
	r.byID[rule.ID] = rule
	r.byIdentity[rule.AppIdentity] = rule.ID
	return nil
}

func (r *memRules) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.byID[id]
	if !ok {
		return &domain.NotFoundError{Resource: "block rule", ID: id}
	}
	delete(r.byID, id)
	delete(r.byIdentity, rule.AppIdentity)
	return nil
}

func (r *memRules) Get(id string) (*domain.BlockRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "block rule", ID: id}
	}
	return &rule, nil
}

func (r *memRules) List() ([]domain.BlockRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BlockRule, 0, len(r.byID))
	for _, rule := range r.byID {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppIdentity < out[j].AppIdentity })
	return out, nil
}

type memFavorites struct {
	mu   sync.RWMutex
	byID map[string]domain.Favorite
}

func (r *memFavorites) Insert(f domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[f.ID]; ok {
		return &domain.ConflictError{Resource: "favorite", Key: f.ID, Reason: "id already exists"}
	}
	r.byID[f.ID] = cloneFavorite(f)
	return nil
}

func (r *memFavorites) Update(f domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[f.ID]; !ok {
		return &domain.NotFoundError{Resource: "favorite", ID: f.ID}
	}
	r.byID[f.ID] = cloneFavorite(f)
	return nil
}

func (r *memFavorites) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return &domain.NotFoundError{Resource: "favorite", ID: id}
	}
	delete(r.byID, id)
	return nil
}

func (r *memFavorites) Get(id string) (*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "favorite", ID: id}
	}
	c := cloneFavorite(f)
	return &c, nil
}

func (r *memFavorites) List() ([]domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Favorite, 0, len(r.byID))
	for _, f := range r.byID {
		out = append(out, cloneFavorite(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSettings struct {
	mu     sync.RWMutex
	values map[string]string
}

func (r *memSettings) Get(key string) (*domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	return &domain.Setting{Key: key, Value: v}, nil
}

func (r *memSettings) Set(s domain.Setting) error {
	r.mu.Lock()
	r.values[s.Key] = s.Value
	r.mu.Unlock()
	return nil
}

func (r *memSettings) List() ([]domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Setting, 0, len(r.values))
	for k, v := range r.values {
		out = append(out, domain.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func duplicateRule(identity string) error {
	return &domain.ConflictError{Resource: "block rule", Key: identity, Reason: "a rule for this app already exists"}
}

func cloneFavorite(f domain.Favorite) domain.Favorite {
	c := f
	if f.PinnedOrder != nil {
		v := *f.PinnedOrder
		c.PinnedOrder = &v
	}
	if f.IconHint != nil {
		v := *f.IconHint
		c.IconHint = &v
	}
	return c
}

// Ensure MemoryStore implements domain.Store.
var _ domain.Store = (*MemoryStore)(nil)
