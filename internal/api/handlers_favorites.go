package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

type FavoriteHandler struct {
	favorites *usecase.FavoriteService
	logger    *zap.Logger
}

func NewFavoriteHandler(favorites *usecase.FavoriteService, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

// List handles GET /api/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.favorites.List()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

// Add handles POST /api/favorites
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req usecase.FavoriteInput
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	fav, err := h.favorites.Add(req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// Update handles PATCH /api/favorites/{id}
func (h *FavoriteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req usecase.FavoritePatch
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	fav, err := h.favorites.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fav)
}

// Remove handles DELETE /api/favorites/{id}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Remove(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
