// internal/database/projects.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"ghost-vault/internal/model"
)

const projectColumns = `id, title, github_url, description, creator_id, creator_name, creator_email,
	vitality_score, status, ghost_log, stars, forks, open_issues, last_updated_at, created_at, updated_at`

const createProject = `INSERT INTO projects (
	id, title, github_url, description, creator_id, creator_name, creator_email,
	vitality_score, status, ghost_log, stars, forks, open_issues, last_updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + projectColumns

// CreateProjectParams holds the columns of a new project row.
type CreateProjectParams struct {
	ID            string
	Title         string
	GithubURL     string
	Description   string
	CreatorID     string
	CreatorName   string
	CreatorEmail  string
	VitalityScore int32
	Status        string
	GhostLog      string
	Stars         int32
	Forks         int32
	OpenIssues    int32
	LastUpdatedAt time.Time
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (model.Project, error) {
	row := q.db.QueryRow(ctx, createProject,
		arg.ID, arg.Title, arg.GithubURL, arg.Description, arg.CreatorID, arg.CreatorName, arg.CreatorEmail,
		arg.VitalityScore, arg.Status, arg.GhostLog, arg.Stars, arg.Forks, arg.OpenIssues, arg.LastUpdatedAt,
	)
	return scanProject(row)
}

const getProject = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

func (q *Queries) GetProject(ctx context.Context, id string) (model.Project, error) {
	return scanProject(q.db.QueryRow(ctx, getProject, id))
}

const listProjects = `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`

func (q *Queries) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := q.db.Query(ctx, listProjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProjectAppraisal = `UPDATE projects SET
	vitality_score = $2, status = $3, ghost_log = $4, stars = $5, forks = $6,
	open_issues = $7, last_updated_at = $8, updated_at = NOW()
WHERE id = $1
RETURNING ` + projectColumns

// UpdateProjectAppraisalParams holds the re-derived fields of a project.
type UpdateProjectAppraisalParams struct {
	ID            string
	VitalityScore int32
	Status        string
	GhostLog      string
	Stars         int32
	Forks         int32
	OpenIssues    int32
	LastUpdatedAt time.Time
}

func (q *Queries) UpdateProjectAppraisal(ctx context.Context, arg UpdateProjectAppraisalParams) (model.Project, error) {
	row := q.db.QueryRow(ctx, updateProjectAppraisal,
		arg.ID, arg.VitalityScore, arg.Status, arg.GhostLog, arg.Stars, arg.Forks, arg.OpenIssues, arg.LastUpdatedAt,
	)
	return scanProject(row)
}

func scanProject(row pgx.Row) (model.Project, error) {
	var (
		p                               model.Project
		status                          string
		score, stars, forks, openIssues int32
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.GithubURL, &p.Description, &p.CreatorID, &p.CreatorName, &p.CreatorEmail,
		&score, &status, &p.GhostLog, &stars, &forks, &openIssues, &p.LastUpdatedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Project{}, err
	}
	p.Status = model.Status(status)
	p.VitalityScore, p.Stars, p.Forks, p.OpenIssues = int(score), int(stars), int(forks), int(openIssues)
	return p, nil
}
