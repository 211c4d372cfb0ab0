// internal/database/store.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// TxBeginner is a DBTX that can open transactions, such as *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists projects and interest requests in Postgres and translates
// driver errors into the application's error taxonomy.
type Store struct {
	db     TxBeginner
	q      *Queries
	logger *slog.Logger
}

// NewStore creates a Store on db.
func NewStore(db TxBeginner, logger *slog.Logger) *Store {
	return &Store{db: db, q: New(db), logger: logger}
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	created, err := s.q.CreateProject(ctx, CreateProjectParams{
		ID:            p.ID,
		Title:         p.Title,
		GithubURL:     p.GithubURL,
		Description:   p.Description,
		CreatorID:     p.CreatorID,
		CreatorName:   p.CreatorName,
		CreatorEmail:  p.CreatorEmail,
		VitalityScore: int32(p.VitalityScore),
		Status:        string(p.Status),
		GhostLog:      p.GhostLog,
		Stars:         int32(p.Stars),
		Forks:         int32(p.Forks),
		OpenIssues:    int32(p.OpenIssues),
		LastUpdatedAt: p.LastUpdatedAt,
	})
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	return created, nil
}

// GetProject returns the project with id or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	p, err := s.q.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, notFound(err, "project %s", id)
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s.q.ListProjects(ctx)
}

// UpdateProjectAppraisal stores a project's re-derived score, status and metrics.
func (s *Store) UpdateProjectAppraisal(ctx context.Context, p model.Project) (model.Project, error) {
	updated, err := s.q.UpdateProjectAppraisal(ctx, UpdateProjectAppraisalParams{
		ID:            p.ID,
		VitalityScore: int32(p.VitalityScore),
		Status:        string(p.Status),
		GhostLog:      p.GhostLog,
		Stars:         int32(p.Stars),
		Forks:         int32(p.Forks),
		OpenIssues:    int32(p.OpenIssues),
		LastUpdatedAt: p.LastUpdatedAt,
	})
	if err != nil {
		return model.Project{}, notFound(err, "project %s", p.ID)
	}
	return updated, nil
}

// GetInterestRequest returns the request for the pair or ErrNotFound.
func (s *Store) GetInterestRequest(ctx context.Context, projectID, requesterID string) (model.InterestRequest, error) {
	r, err := s.q.GetInterestRequestByPair(ctx, GetInterestRequestByPairParams{ProjectID: projectID, RequesterID: requesterID})
	if err != nil {
		return model.InterestRequest{}, notFound(err, "interest request for project %s", projectID)
	}
	return r, nil
}

// GetInterestRequestByID returns the request with id or ErrNotFound.
func (s *Store) GetInterestRequestByID(ctx context.Context, id string) (model.InterestRequest, error) {
	r, err := s.q.GetInterestRequestByID(ctx, id)
	if err != nil {
		return model.InterestRequest{}, notFound(err, "interest request %s", id)
	}
	return r, nil
}

// ListInterestRequests returns a project's requests, newest first.
func (s *Store) ListInterestRequests(ctx context.Context, projectID string) ([]model.InterestRequest, error) {
	return s.q.ListInterestRequestsByProject(ctx, projectID)
}

// CreateInterestRequest inserts a pending request and announces it on StatusChannel
// in the same transaction. The unique constraint on (project_id, requester_id)
// turns a lost race into ErrDuplicateRequest.
func (s *Store) CreateInterestRequest(ctx context.Context, req model.InterestRequest) (model.InterestRequest, error) {
	var created model.InterestRequest
	err := s.inTx(ctx, func(q Querier) error {
		var err error
		created, err = s.createInterestRequest(ctx, q, req)
		return err
	})
	if err != nil {
		return model.InterestRequest{}, err
	}
	return created, nil
}

func (s *Store) createInterestRequest(ctx context.Context, q Querier, req model.InterestRequest) (model.InterestRequest, error) {
	created, err := q.InsertInterestRequest(ctx, InsertInterestRequestParams{
		ID:             req.ID,
		ProjectID:      req.ProjectID,
		RequesterID:    req.RequesterID,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Message:        req.Message,
		CreatedAt:      req.CreatedAt,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("Interest request insert hit the uniqueness constraint", "project_id", req.ProjectID, "requester_id", req.RequesterID)
		return model.InterestRequest{}, custom_errors.ErrDuplicateRequest
	}
	if err != nil {
		return model.InterestRequest{}, translateWriteError(err, req.ProjectID)
	}
	if err := s.notify(ctx, q, created, model.InterestNone, created.CreatedAt); err != nil {
		return model.InterestRequest{}, err
	}
	return created, nil
}

// DecideInterestRequest moves a pending request to outcome. A request that is
// already terminal yields ErrInvalidTransition; an unknown id yields ErrNotFound.
func (s *Store) DecideInterestRequest(ctx context.Context, id string, outcome model.InterestStatus, at time.Time) (model.InterestRequest, error) {
	var decided model.InterestRequest
	err := s.inTx(ctx, func(q Querier) error {
		var err error
		decided, err = s.decideInterestRequest(ctx, q, id, outcome, at)
		return err
	})
	if err != nil {
		return model.InterestRequest{}, err
	}
	return decided, nil
}

func (s *Store) decideInterestRequest(ctx context.Context, q Querier, id string, outcome model.InterestStatus, at time.Time) (model.InterestRequest, error) {
	decided, err := q.DecidePendingInterestRequest(ctx, DecidePendingInterestRequestParams{
		ID:        id,
		Status:    string(outcome),
		DecidedAt: at,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		current, lookupErr := q.GetInterestRequestByID(ctx, id)
		if lookupErr != nil {
			return model.InterestRequest{}, notFound(lookupErr, "interest request %s", id)
		}
		return model.InterestRequest{}, fmt.Errorf("%w: request %s is already %s", custom_errors.ErrInvalidTransition, id, current.Status)
	}
	if err != nil {
		return model.InterestRequest{}, fmt.Errorf("decide interest request: %w", err)
	}
	if err := s.notify(ctx, q, decided, model.InterestPending, at); err != nil {
		return model.InterestRequest{}, err
	}
	return decided, nil
}

func (s *Store) notify(ctx context.Context, q Querier, r model.InterestRequest, from model.InterestStatus, at time.Time) error {
	payload, err := json.Marshal(model.StatusChange{
		ProjectID:   r.ProjectID,
		RequesterID: r.RequesterID,
		RequestID:   r.ID,
		From:        from,
		To:          r.Status,
		At:          at,
	})
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	if err := q.NotifyStatusChange(ctx, string(payload)); err != nil {
		return fmt.Errorf("notify status change: %w", err)
	}
	return nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", custom_errors.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

func translateWriteError(err error, projectID string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return custom_errors.ErrDuplicateRequest
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: project %s", custom_errors.ErrNotFound, projectID)
		}
	}
	return fmt.Errorf("insert interest request: %w", err)
}
