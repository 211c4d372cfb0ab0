// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ghost-vault/internal/catalog"
	"ghost-vault/internal/interest"
	"ghost-vault/internal/model"
)

const requestTimeout = 60 * time.Second

// Catalog is the project side of the API.
type Catalog interface {
	Appraise(ctx context.Context, githubURL, title, description string) (catalog.Appraisal, error)
	AddProject(ctx context.Context, in catalog.NewProject) (model.Project, error)
	Refresh(ctx context.Context, projectID string) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Interests is the interest-request side of the API.
type Interests interface {
	Submit(ctx context.Context, projectID string, requester model.Identity, message string) (model.InterestRequest, error)
	DecideAs(ctx context.Context, requestID string, decider model.Identity, outcome model.InterestStatus) (model.InterestRequest, error)
	CurrentStatus(ctx context.Context, projectID, requesterID string) (model.InterestStatus, error)
	WatchStatus(ctx context.Context, projectID, requesterID string, handler interest.Handler) (*interest.Subscription, error)
	ListForProject(ctx context.Context, projectID string) ([]model.InterestRequest, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	catalog   Catalog
	interests Interests
	logger    *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(catalog Catalog, interests Interests, logger *slog.Logger) http.Handler {
	h := &Handler{
		catalog:   catalog,
		interests: interests,
		logger:    logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		// Status streams stay open for as long as the client watches.
		r.Get("/projects/{id}/interests/me/stream", h.streamMyInterestStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/appraisals", h.appraise)
			r.Post("/projects", h.addProject)
			r.Get("/projects", h.listProjects)
			r.Get("/projects/{id}", h.getProject)
			r.Post("/projects/{id}/refresh", h.refreshProject)
			r.Post("/projects/{id}/interests", h.submitInterest)
			r.Get("/projects/{id}/interests", h.listInterests)
			r.Get("/projects/{id}/interests/me", h.myInterestStatus)
			r.Post("/interests/{id}/decision", h.decideInterest)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
