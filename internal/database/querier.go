// internal/database/querier.go
package database

import (
	"context"

	"ghost-vault/internal/model"
)

// Querier is the set of statements available on Queries.
type Querier interface {
	CreateProject(ctx context.Context, arg CreateProjectParams) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProjectAppraisal(ctx context.Context, arg UpdateProjectAppraisalParams) (model.Project, error)

	InsertInterestRequest(ctx context.Context, arg InsertInterestRequestParams) (model.InterestRequest, error)
	GetInterestRequestByPair(ctx context.Context, arg GetInterestRequestByPairParams) (model.InterestRequest, error)
	GetInterestRequestByID(ctx context.Context, id string) (model.InterestRequest, error)
	DecidePendingInterestRequest(ctx context.Context, arg DecidePendingInterestRequestParams) (model.InterestRequest, error)
	ListInterestRequestsByProject(ctx context.Context, projectID string) ([]model.InterestRequest, error)
	NotifyStatusChange(ctx context.Context, payload string) error
}

var _ Querier = (*Queries)(nil)
