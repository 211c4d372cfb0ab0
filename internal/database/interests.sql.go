// internal/database/interests.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"ghost-vault/internal/model"
)

// StatusChannel is the LISTEN/NOTIFY channel carrying interest status changes.
const StatusChannel = "interest_status_changed"

const interestColumns = `id, project_id, requester_id, requester_name, requester_email, message, status, created_at, decided_at`

const insertInterestRequest = `INSERT INTO interest_requests (
	id, project_id, requester_id, requester_name, requester_email, message, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
ON CONFLICT ON CONSTRAINT interest_requests_project_requester_key DO NOTHING
RETURNING ` + interestColumns

// InsertInterestRequestParams holds the columns of a new interest request.
type InsertInterestRequestParams struct {
	ID             string
	ProjectID      string
	RequesterID    string
	RequesterName  string
	RequesterEmail string
	Message        string
	CreatedAt      time.Time
}

// InsertInterestRequest returns pgx.ErrNoRows when the (project, requester) pair already exists.
func (q *Queries) InsertInterestRequest(ctx context.Context, arg InsertInterestRequestParams) (model.InterestRequest, error) {
	row := q.db.QueryRow(ctx, insertInterestRequest,
		arg.ID, arg.ProjectID, arg.RequesterID, arg.RequesterName, arg.RequesterEmail, arg.Message, arg.CreatedAt,
	)
	return scanInterestRequest(row)
}

const getInterestRequestByPair = `SELECT ` + interestColumns + ` FROM interest_requests
WHERE project_id = $1 AND requester_id = $2`

// GetInterestRequestByPairParams identifies a request by project and requester.
type GetInterestRequestByPairParams struct {
	ProjectID   string
	RequesterID string
}

func (q *Queries) GetInterestRequestByPair(ctx context.Context, arg GetInterestRequestByPairParams) (model.InterestRequest, error) {
	return scanInterestRequest(q.db.QueryRow(ctx, getInterestRequestByPair, arg.ProjectID, arg.RequesterID))
}

const getInterestRequestByID = `SELECT ` + interestColumns + ` FROM interest_requests WHERE id = $1`

func (q *Queries) GetInterestRequestByID(ctx context.Context, id string) (model.InterestRequest, error) {
	return scanInterestRequest(q.db.QueryRow(ctx, getInterestRequestByID, id))
}

const decidePendingInterestRequest = `UPDATE interest_requests SET status = $2, decided_at = $3
WHERE id = $1 AND status = 'pending'
RETURNING ` + interestColumns

// DecidePendingInterestRequestParams holds a terminal outcome for a pending request.
type DecidePendingInterestRequestParams struct {
	ID        string
	Status    string
	DecidedAt time.Time
}

// DecidePendingInterestRequest returns pgx.ErrNoRows when the request is missing or no longer pending.
func (q *Queries) DecidePendingInterestRequest(ctx context.Context, arg DecidePendingInterestRequestParams) (model.InterestRequest, error) {
	return scanInterestRequest(q.db.QueryRow(ctx, decidePendingInterestRequest, arg.ID, arg.Status, arg.DecidedAt))
}

const listInterestRequestsByProject = `SELECT ` + interestColumns + ` FROM interest_requests
WHERE project_id = $1 ORDER BY created_at DESC`

func (q *Queries) ListInterestRequestsByProject(ctx context.Context, projectID string) ([]model.InterestRequest, error) {
	rows, err := q.db.Query(ctx, listInterestRequestsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.InterestRequest
	for rows.Next() {
		r, err := scanInterestRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const notifyStatusChange = `SELECT pg_notify($1, $2)`

// NotifyStatusChange queues payload on StatusChannel; it is delivered when the transaction commits.
func (q *Queries) NotifyStatusChange(ctx context.Context, payload string) error {
	_, err := q.db.Exec(ctx, notifyStatusChange, StatusChannel, payload)
	return err
}

func scanInterestRequest(row pgx.Row) (model.InterestRequest, error) {
	var (
		r      model.InterestRequest
		status string
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.RequesterID, &r.RequesterName, &r.RequesterEmail,
		&r.Message, &status, &r.CreatedAt, &r.DecidedAt)
	if err != nil {
		return model.InterestRequest{}, err
	}
	r.Status = model.InterestStatus(status)
	return r, nil
}
