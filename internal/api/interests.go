// internal/api/interests.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
)

const streamKeepAlive = 25 * time.Second

type submitInterestRequest struct {
	Message string `json:"message"`
}

type decisionRequest struct {
	Outcome model.InterestStatus `json:"outcome"`
}

type interestStatusResponse struct {
	ProjectID string               `json:"projectId"`
	Status    model.InterestStatus `json:"status"`
}

// submitInterest records the caller's interest in reviving a project.
// POST /v1/projects/{id}/interests
func (h *Handler) submitInterest(w http.ResponseWriter, r *http.Request) {
	requester := identityFromRequest(r)
	if !requester.Authenticated() {
		h.respondWithDomainError(w, r, custom_errors.ErrUnauthenticated)
		return
	}
	var body submitInterestRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	req, err := h.interests.Submit(r.Context(), chi.URLParam(r, "id"), requester, body.Message)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, req)
}

// listInterests returns every request on a project.
// GET /v1/projects/{id}/interests
func (h *Handler) listInterests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.interests.ListForProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []model.InterestRequest{}
	}
	respondWithJSON(w, http.StatusOK, reqs)
}

// myInterestStatus returns the caller's request status on a project, "none" if absent.
// GET /v1/projects/{id}/interests/me
func (h *Handler) myInterestStatus(w http.ResponseWriter, r *http.Request) {
	requester := identityFromRequest(r)
	if !requester.Authenticated() {
		h.respondWithDomainError(w, r, custom_errors.ErrUnauthenticated)
		return
	}
	projectID := chi.URLParam(r, "id")

	status, err := h.interests.CurrentStatus(r.Context(), projectID, requester.ID)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, interestStatusResponse{ProjectID: projectID, Status: status})
}

// streamMyInterestStatus sends the caller's current status and every later
// transition as server-sent events. The stream ends after a terminal status.
// GET /v1/projects/{id}/interests/me/stream
func (h *Handler) streamMyInterestStatus(w http.ResponseWriter, r *http.Request) {
	requester := identityFromRequest(r)
	if !requester.Authenticated() {
		h.respondWithDomainError(w, r, custom_errors.ErrUnauthenticated)
		return
	}
	projectID := chi.URLParam(r, "id")
	if _, err := h.catalog.GetProject(r.Context(), projectID); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	logger := h.requestLogger(r).With("project_id", projectID, "requester_id", requester.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan model.StatusChange, 8)
	sub, err := h.interests.WatchStatus(ctx, projectID, requester.ID, func(c model.StatusChange) bool {
		select {
		case events <- c:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	defer func() {
		cancel()
		sub.Cancel()
	}()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Error("Streaming is not supported by the response writer", "error", err)
		return
	}
	logger.Info("Status stream opened")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case change := <-events:
			if err := writeEvent(w, change); err != nil {
				logger.Warn("Status stream write failed", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			if change.To.Terminal() {
				logger.Info("Status stream closed after terminal status", "status", change.To)
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-ctx.Done():
			logger.Info("Status stream closed by client")
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, change model.StatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
	return err
}

// decideInterest approves or rejects a request. Only the project creator may decide.
// POST /v1/interests/{id}/decision
func (h *Handler) decideInterest(w http.ResponseWriter, r *http.Request) {
	var body decisionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	decided, err := h.interests.DecideAs(r.Context(), chi.URLParam(r, "id"), identityFromRequest(r), body.Outcome)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decided)
}
