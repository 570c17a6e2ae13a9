package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

const (
	kindInternal     = "internal"
	kindUnauthorized = "unauthorized"
	kindValidation   = "validation"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Anything
// outside it is an infrastructure failure and is logged.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	kind := domain.ErrorKind(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", GetRequestID(r)),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, err.Error(), kindInternal)
		return
	}
	writeError(w, status, err.Error(), kind)
}

func statusFor(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "invalid_transition":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into v. Failures are validation errors.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return &domain.ValidationError{Reason: "request body is required"}
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Reason: "request body is required"}
		}
		return &domain.ValidationError{Reason: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}
