package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// FavoriteInput is the payload for pinning an application.
type FavoriteInput struct {
	AppIdentity string  `json:"appIdentity"`
	DisplayName string  `json:"displayName"`
	PinnedOrder *int    `json:"pinnedOrder,omitempty"`
	IconHint    *string `json:"iconHint,omitempty"`
}

// FavoritePatch carries the fields to change on a favorite.
type FavoritePatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	PinnedOrder *int    `json:"pinnedOrder,omitempty"`
	IconHint    *string `json:"iconHint,omitempty"`
}

// FavoriteService manages pinned applications. Favorites never affect
// enforcement.
type FavoriteService struct {
	mu     sync.Mutex
	repo   domain.FavoriteRepository
	newID  func() string
	logger *zap.Logger
}

// NewFavoriteService creates a favorite service.
func NewFavoriteService(repo domain.FavoriteRepository, logger *zap.Logger) *FavoriteService {
	return &FavoriteService{repo: repo, newID: uuid.NewString, logger: logger}
}

// Add pins an application. DisplayName defaults to the identity.
func (s *FavoriteService) Add(in FavoriteInput) (*domain.Favorite, error) {
	identity := strings.TrimSpace(in.AppIdentity)
	if identity == "" {
		return nil, &domain.ValidationError{Field: "appIdentity", Reason: "must not be empty"}
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = identity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := domain.Favorite{
		ID:          s.newID(),
		AppIdentity: identity,
		DisplayName: name,
		PinnedOrder: in.PinnedOrder,
		IconHint:    in.IconHint,
	}
	if err := s.repo.Insert(f); err != nil {
		return nil, storeErr("add favorite", err)
	}
	s.logger.Info("favorite added", zap.String("favorite", f.ID), zap.String("app", identity))
	return &f, nil
}

// Update merges the present fields of patch into a favorite.
func (s *FavoriteService) Update(id string, patch FavoritePatch) (*domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.repo.Get(id)
	if err != nil {
		return nil, storeErr("load favorite", err)
	}
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" {
			return nil, &domain.ValidationError{Field: "displayName", Reason: "must not be empty"}
		}
		f.DisplayName = name
	}
	if patch.PinnedOrder != nil {
		f.PinnedOrder = patch.PinnedOrder
	}
	if patch.IconHint != nil {
		f.IconHint = patch.IconHint
	}
	if err := s.repo.Update(*f); err != nil {
		return nil, storeErr("update favorite", err)
	}
	return f, nil
}

// Remove unpins a favorite.
func (s *FavoriteService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(id); err != nil {
		return storeErr("remove favorite", err)
	}
	s.logger.Info("favorite removed", zap.String("favorite", id))
	return nil
}

// List returns favorites ordered by pinned order (unset counts as 0),
// then display name.
func (s *FavoriteService) List() ([]domain.Favorite, error) {
	favs, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	sort.SliceStable(favs, func(i, j int) bool {
		if favs[i].Order() != favs[j].Order() {
			return favs[i].Order() < favs[j].Order()
		}
		return favs[i].DisplayName < favs[j].DisplayName
	})
	return favs, nil
}
