// internal/api/projects.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ghost-vault/internal/catalog"
)

type appraiseRequest struct {
	GithubURL   string `json:"githubUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type addProjectRequest struct {
	GithubURL   string `json:"githubUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
	GhostLog    string `json:"ghostLog"`
}

// appraise previews a repository's score, status and narrative without storing it.
// POST /v1/appraisals
func (h *Handler) appraise(w http.ResponseWriter, r *http.Request) {
	var body appraiseRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	appraisal, err := h.catalog.Appraise(r.Context(), body.GithubURL, body.Title, body.Description)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appraisal)
}

// addProject catalogs a repository owned by the caller.
// POST /v1/projects
func (h *Handler) addProject(w http.ResponseWriter, r *http.Request) {
	var body addProjectRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	project, err := h.catalog.AddProject(r.Context(), catalog.NewProject{
		Title:       body.Title,
		GithubURL:   body.GithubURL,
		Description: body.Description,
		GhostLog:    body.GhostLog,
		Creator:     identityFromRequest(r),
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, project)
}

// listProjects returns the whole catalog.
// GET /v1/projects
func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalog.ListProjects(r.Context())
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, projects)
}

// GET /v1/projects/{id}
func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.catalog.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, project)
}

// refreshProject re-fetches metrics and re-derives score and status on demand.
// POST /v1/projects/{id}/refresh
func (h *Handler) refreshProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.catalog.Refresh(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, project)
}
