// internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
)

const (
	headerUserID    = "X-User-ID"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"

	maxBodyBytes = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithDomainError maps an operation error to its HTTP status.
func (h *Handler) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, custom_errors.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, custom_errors.ErrValidationFailed):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, custom_errors.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, custom_errors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, custom_errors.ErrDuplicateRequest):
		respondWithError(w, http.StatusConflict, "already submitted")
	case errors.Is(err, custom_errors.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, custom_errors.ErrFetchUnavailable):
		respondWithError(w, http.StatusBadGateway, "Could not fetch repository, check the URL")
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return custom_errors.Validation("invalid request body: %v", err)
	}
	return nil
}

// identityFromRequest reads the caller set by the upstream auth proxy.
func identityFromRequest(r *http.Request) model.Identity {
	return model.Identity{
		ID:    strings.TrimSpace(r.Header.Get(headerUserID)),
		Name:  strings.TrimSpace(r.Header.Get(headerUserName)),
		Email: strings.TrimSpace(r.Header.Get(headerUserEmail)),
	}
}

// requestLogger tags the handler logger with the request id.
func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
