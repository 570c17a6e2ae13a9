package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

type RuleHandler struct {
	rules  *usecase.RuleService
	blocks *usecase.BlockService
	logger *zap.Logger
}

func NewRuleHandler(rules *usecase.RuleService, blocks *usecase.BlockService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, blocks: blocks, logger: logger}
}

// List handles GET /api/block-rules
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// Add handles POST /api/block-rules
func (h *RuleHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req usecase.RuleInput
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	rule, err := h.rules.Add(req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// Update handles PATCH /api/block-rules/{id}
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req usecase.RulePatch
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	rule, err := h.rules.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// Remove handles DELETE /api/block-rules/{id}
func (h *RuleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Remove(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Effective handles GET /api/blocks
func (h *RuleHandler) Effective(w http.ResponseWriter, r *http.Request) {
	snap, err := h.blocks.Snapshot()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// BlockedApps handles GET /api/blocked-apps
func (h *RuleHandler) BlockedApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.blocks.BlockedApps()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
