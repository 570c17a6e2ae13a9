package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

type AppHandler struct {
	catalog *usecase.AppCatalog
	logger  *zap.Logger
}

func NewAppHandler(catalog *usecase.AppCatalog, logger *zap.Logger) *AppHandler {
	return &AppHandler{catalog: catalog, logger: logger}
}

// List handles GET /api/apps
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.catalog.List()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// Search handles GET /api/apps/search?q=
func (h *AppHandler) Search(w http.ResponseWriter, r *http.Request) {
	apps, err := h.catalog.Search(r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

type LogHandler struct {
	buf *logbuf.Buffer
}

func NewLogHandler(buf *logbuf.Buffer) *LogHandler {
	return &LogHandler{buf: buf}
}

// List handles GET /api/logs
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.buf.Entries())
}

// Clear handles DELETE /api/logs
func (h *LogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.buf.Clear()
	w.WriteHeader(http.StatusNoContent)
}
