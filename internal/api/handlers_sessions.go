package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	DurationSecs int64 `json:"durationSecs"`
}

// UpdateSessionRequest is the body of PATCH /api/sessions/{id}. Status is
// the state to move to.
type UpdateSessionRequest struct {
	Status string `json:"status"`
}

// SessionResponse is a session plus its remaining time at response time.
type SessionResponse struct {
	domain.Session
	RemainingNowSecs int64 `json:"remainingNowSecs"`
}

// actionForStatus maps a requested target state onto a transition.
var actionForStatus = map[domain.SessionStatus]string{
	domain.StatusPaused:    usecase.ActionPause,
	domain.StatusRunning:   usecase.ActionResume,
	domain.StatusCompleted: usecase.ActionComplete,
	domain.StatusCanceled:  usecase.ActionCancel,
}

type SessionHandler struct {
	sessions *usecase.SessionManager
	clock    clock.Clock
	logger   *zap.Logger
}

func NewSessionHandler(sessions *usecase.SessionManager, clk clock.Clock, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, clock: clk, logger: logger}
}

func (h *SessionHandler) toResponse(s domain.Session) SessionResponse {
	return SessionResponse{Session: s, RemainingNowSecs: s.Remaining(h.clock.Now())}
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	s, err := h.sessions.Create(req.DurationSecs)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(*s))
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, h.toResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Current handles GET /api/sessions/current. Replies null when idle.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Current()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if s == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*s))
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*s))
}

// Action returns the handler for POST /api/sessions/{id}/<action>.
func (h *SessionHandler) Action(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.apply(w, r, action)
	}
}

// Update handles PATCH /api/sessions/{id}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	action, ok := actionForStatus[domain.SessionStatus(req.Status)]
	if !ok {
		writeDomainError(w, r, h.logger, &domain.ValidationError{
			Field:  "status",
			Reason: "cannot move a session to " + `"` + req.Status + `"`,
		})
		return
	}
	h.apply(w, r, action)
}

func (h *SessionHandler) apply(w http.ResponseWriter, r *http.Request, action string) {
	s, err := h.sessions.Apply(chi.URLParam(r, "id"), action)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*s))
}
