package api

import (
	"net/http"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    int64  `json:"time"`
}

type HealthHandler struct {
	version string
	clock   clock.Clock
}

func NewHealthHandler(version string, clk clock.Clock) *HealthHandler {
	return &HealthHandler{version: version, clock: clk}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Time:    h.clock.Now().Unix(),
	})
}
