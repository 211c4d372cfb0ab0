// internal/catalog/catalog.go
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/github"
	"ghost-vault/internal/model"
	"ghost-vault/internal/narrative"
)

// MetricsFetcher resolves a repository URL to its current metrics.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, repoURL string) (model.RepoMetrics, error)
}

// Narrator describes a project. It must not fail.
type Narrator interface {
	Describe(ctx context.Context, req narrative.Request) narrative.Narrative
}

// Store persists cataloged projects.
type Store interface {
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProjectAppraisal(ctx context.Context, p model.Project) (model.Project, error)
}

// Scorer derives a vitality score from metrics.
type Scorer interface {
	Score(m model.RepoMetrics) int
}

// Classifier maps a score and last activity to a status.
type Classifier interface {
	Classify(score int, lastUpdatedAt time.Time) model.Status
}

// Appraisal is the derived view of a repository before it is stored.
type Appraisal struct {
	Metrics   model.RepoMetrics `json:"metrics"`
	Score     int               `json:"vitalityScore"`
	Status    model.Status      `json:"status"`
	Narrative string            `json:"ghostLog"`
}

// NewProject is the input to AddProject. An empty GhostLog is filled from the narrative.
type NewProject struct {
	Title       string
	GithubURL   string
	Description string
	GhostLog    string
	Creator     model.Identity
}

// Catalog appraises repositories and keeps the stored projects' scores current.
type Catalog struct {
	fetcher    MetricsFetcher
	scorer     Scorer
	classifier Classifier
	narrator   Narrator
	store      Store
	logger     *slog.Logger
}

// New creates a Catalog.
func New(fetcher MetricsFetcher, scorer Scorer, classifier Classifier, narrator Narrator, store Store, logger *slog.Logger) *Catalog {
	return &Catalog{
		fetcher:    fetcher,
		scorer:     scorer,
		classifier: classifier,
		narrator:   narrator,
		store:      store,
		logger:     logger,
	}
}

// Appraise fetches metrics for githubURL and derives its score, status and narrative.
func (c *Catalog) Appraise(ctx context.Context, githubURL, title, description string) (Appraisal, error) {
	if strings.TrimSpace(githubURL) == "" {
		return Appraisal{}, custom_errors.Validation("github url must not be empty")
	}

	metrics, err := c.fetcher.FetchMetrics(ctx, githubURL)
	if err != nil {
		return Appraisal{}, err
	}
	if title == "" {
		title = metrics.Name
	}
	if description == "" {
		description = metrics.Description
	}
	return c.appraise(ctx, metrics, title, description), nil
}

func (c *Catalog) appraise(ctx context.Context, metrics model.RepoMetrics, title, description string) Appraisal {
	score := c.scorer.Score(metrics)
	status := c.classifier.Classify(score, metrics.LastUpdatedAt)

	n := c.narrator.Describe(ctx, narrative.Request{Title: title, Description: description, Metrics: metrics})
	if n.SuggestedStatus != "" && n.SuggestedStatus != status {
		// The classifier is authoritative; the suggestion is only recorded.
		c.logger.Info("Narrative suggested a different status",
			"repo", metrics.Owner+"/"+metrics.Name, "classified", status, "suggested", n.SuggestedStatus)
	}

	return Appraisal{
		Metrics:   metrics,
		Score:     score,
		Status:    status,
		Narrative: n.Text,
	}
}

// AddProject appraises the repository and stores it as a new project owned by the creator.
func (c *Catalog) AddProject(ctx context.Context, in NewProject) (model.Project, error) {
	if !in.Creator.Authenticated() {
		return model.Project{}, custom_errors.ErrUnauthenticated
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Project{}, custom_errors.Validation("title must not be empty")
	}
	repo, err := github.ParseRepoURL(in.GithubURL)
	if err != nil {
		return model.Project{}, fmt.Errorf("%w: %w", custom_errors.ErrValidationFailed, err)
	}

	appraisal, err := c.Appraise(ctx, in.GithubURL, in.Title, in.Description)
	if err != nil {
		return model.Project{}, err
	}

	ghostLog := strings.TrimSpace(in.GhostLog)
	if ghostLog == "" {
		ghostLog = appraisal.Narrative
	}
	description := in.Description
	if description == "" {
		description = appraisal.Metrics.Description
	}

	project, err := c.store.CreateProject(ctx, model.Project{
		ID:            uuid.NewString(),
		Title:         in.Title,
		GithubURL:     "https://github.com/" + repo.FullName(),
		Description:   description,
		CreatorID:     in.Creator.ID,
		CreatorName:   in.Creator.Name,
		CreatorEmail:  in.Creator.Email,
		VitalityScore: appraisal.Score,
		Status:        appraisal.Status,
		GhostLog:      ghostLog,
		Stars:         appraisal.Metrics.Stars,
		Forks:         appraisal.Metrics.Forks,
		OpenIssues:    appraisal.Metrics.OpenIssues,
		LastUpdatedAt: appraisal.Metrics.LastUpdatedAt,
	})
	if err != nil {
		return model.Project{}, err
	}
	c.logger.Info("Project added to catalog", "project_id", project.ID, "repo", repo.FullName(), "score", project.VitalityScore, "status", project.Status)
	return project, nil
}

// Refresh re-fetches a stored project's metrics and re-derives its score and status.
// The stored ghost log is kept unless it is empty.
func (c *Catalog) Refresh(ctx context.Context, projectID string) (model.Project, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}
	logger := c.logger.With("project_id", projectID)

	metrics, err := c.fetcher.FetchMetrics(ctx, project.GithubURL)
	if err != nil {
		return model.Project{}, err
	}

	project.VitalityScore = c.scorer.Score(metrics)
	project.Status = c.classifier.Classify(project.VitalityScore, metrics.LastUpdatedAt)
	project.Stars, project.Forks, project.OpenIssues = metrics.Stars, metrics.Forks, metrics.OpenIssues
	project.LastUpdatedAt = metrics.LastUpdatedAt
	if strings.TrimSpace(project.GhostLog) == "" {
		project.GhostLog = c.appraise(ctx, metrics, project.Title, project.Description).Narrative
	}

	updated, err := c.store.UpdateProjectAppraisal(ctx, project)
	if err != nil {
		return model.Project{}, err
	}
	logger.Info("Project refreshed", "score", updated.VitalityScore, "status", updated.Status)
	return updated, nil
}

// GetProject returns a stored project.
func (c *Catalog) GetProject(ctx context.Context, id string) (model.Project, error) {
	return c.store.GetProject(ctx, id)
}

// ListProjects returns every stored project, newest first.
func (c *Catalog) ListProjects(ctx context.Context) ([]model.Project, error) {
	return c.store.ListProjects(ctx)
}
