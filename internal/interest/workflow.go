// internal/interest/workflow.go
package interest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
	"ghost-vault/internal/notify"
)

// Store is the persistence the workflow needs.
// CreateInterestRequest must return ErrDuplicateRequest when the (project, requester)
// pair already exists, and DecideInterestRequest must only update pending requests,
// returning ErrInvalidTransition otherwise.
type Store interface {
	GetProject(ctx context.Context, id string) (model.Project, error)
	GetInterestRequest(ctx context.Context, projectID, requesterID string) (model.InterestRequest, error)
	GetInterestRequestByID(ctx context.Context, id string) (model.InterestRequest, error)
	CreateInterestRequest(ctx context.Context, req model.InterestRequest) (model.InterestRequest, error)
	DecideInterestRequest(ctx context.Context, id string, outcome model.InterestStatus, at time.Time) (model.InterestRequest, error)
	ListInterestRequests(ctx context.Context, projectID string) ([]model.InterestRequest, error)
}

// Notifier delivers the creator notification for a new request without blocking.
type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification)
}

// Workflow creates interest requests, moves them to a terminal state and
// publishes every change to the Feed.
type Workflow struct {
	store    Store
	feed     *Feed
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorkflow creates a Workflow.
func NewWorkflow(store Store, feed *Feed, notifier Notifier, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:    store,
		feed:     feed,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit records a pending interest request from requester and notifies the project's creator.
func (w *Workflow) Submit(ctx context.Context, projectID string, requester model.Identity, message string) (model.InterestRequest, error) {
	if !requester.Authenticated() {
		return model.InterestRequest{}, custom_errors.ErrUnauthenticated
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return model.InterestRequest{}, custom_errors.Validation("message must not be empty")
	}
	logger := w.logger.With("project_id", projectID, "requester_id", requester.ID)

	project, err := w.store.GetProject(ctx, projectID)
	if err != nil {
		return model.InterestRequest{}, err
	}

	// The pre-check saves a write; the store's uniqueness constraint is what enforces it.
	existing, err := w.store.GetInterestRequest(ctx, projectID, requester.ID)
	switch {
	case err == nil:
		logger.Info("Rejecting duplicate interest request", "existing_status", existing.Status)
		return model.InterestRequest{}, custom_errors.ErrDuplicateRequest
	case !errors.Is(err, custom_errors.ErrNotFound):
		return model.InterestRequest{}, fmt.Errorf("check existing interest request: %w", err)
	}

	created, err := w.store.CreateInterestRequest(ctx, model.InterestRequest{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		Message:        message,
		Status:         model.InterestPending,
		CreatedAt:      w.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, custom_errors.ErrDuplicateRequest) {
			logger.Info("Concurrent duplicate interest request lost the insert race")
		}
		return model.InterestRequest{}, err
	}
	logger.Info("Interest request created", "request_id", created.ID)

	w.publish(created, model.InterestNone)
	w.notifier.Dispatch(ctx, notify.Notification{
		FromName:     requester.Name,
		FromEmail:    requester.Email,
		Message:      message,
		ProjectTitle: project.Title,
		ToEmail:      project.CreatorEmail,
	})

	return created, nil
}

// Decide moves a pending request to approved or rejected. Checking that the
// caller owns the project is the caller's job.
func (w *Workflow) Decide(ctx context.Context, requestID string, outcome model.InterestStatus) (model.InterestRequest, error) {
	if !outcome.Terminal() {
		return model.InterestRequest{}, custom_errors.Validation("outcome must be %q or %q, got %q", model.InterestApproved, model.InterestRejected, outcome)
	}

	decided, err := w.store.DecideInterestRequest(ctx, requestID, outcome, w.now().UTC())
	if err != nil {
		return model.InterestRequest{}, err
	}
	w.logger.Info("Interest request decided", "request_id", requestID, "project_id", decided.ProjectID, "outcome", outcome)

	w.publish(decided, model.InterestPending)
	return decided, nil
}

// DecideAs decides a request on behalf of decider, who must be the creator of
// the request's project.
func (w *Workflow) DecideAs(ctx context.Context, requestID string, decider model.Identity, outcome model.InterestStatus) (model.InterestRequest, error) {
	if !decider.Authenticated() {
		return model.InterestRequest{}, custom_errors.ErrUnauthenticated
	}
	req, err := w.store.GetInterestRequestByID(ctx, requestID)
	if err != nil {
		return model.InterestRequest{}, err
	}
	project, err := w.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return model.InterestRequest{}, err
	}
	if project.CreatorID != decider.ID {
		w.logger.Warn("Rejecting decision from non-creator", "request_id", requestID, "project_id", project.ID, "decider_id", decider.ID)
		return model.InterestRequest{}, fmt.Errorf("%w: only the project creator can decide requests", custom_errors.ErrForbidden)
	}
	return w.Decide(ctx, requestID, outcome)
}

// CurrentStatus reads the status of requesterID's request on projectID.
func (w *Workflow) CurrentStatus(ctx context.Context, projectID, requesterID string) (model.InterestStatus, error) {
	req, err := w.store.GetInterestRequest(ctx, projectID, requesterID)
	if errors.Is(err, custom_errors.ErrNotFound) {
		return model.InterestNone, nil
	}
	if err != nil {
		return "", err
	}
	return req.Status, nil
}

// WatchStatus delivers the current status of the pair to handler, then every
// later transition in order, until the subscription is cancelled or ctx ends.
func (w *Workflow) WatchStatus(ctx context.Context, projectID, requesterID string, handler Handler) (*Subscription, error) {
	if requesterID == "" {
		return nil, custom_errors.ErrUnauthenticated
	}

	// Subscribe before reading so no change can fall between the read and the subscription.
	sub := w.feed.subscribe(Key{ProjectID: projectID, RequesterID: requesterID}, handler)

	initial := model.StatusChange{ProjectID: projectID, RequesterID: requesterID, At: w.now().UTC()}
	req, err := w.store.GetInterestRequest(ctx, projectID, requesterID)
	switch {
	case err == nil:
		initial.RequestID = req.ID
		initial.From, initial.To = req.Status, req.Status
	case errors.Is(err, custom_errors.ErrNotFound):
		initial.From, initial.To = model.InterestNone, model.InterestNone
	default:
		sub.Cancel()
		return nil, err
	}

	sub.start(ctx, initial)
	return sub, nil
}

// ListForProject returns every interest request on a project, newest first.
func (w *Workflow) ListForProject(ctx context.Context, projectID string) ([]model.InterestRequest, error) {
	if _, err := w.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return w.store.ListInterestRequests(ctx, projectID)
}

func (w *Workflow) publish(req model.InterestRequest, from model.InterestStatus) {
	w.feed.Publish(model.StatusChange{
		ProjectID:   req.ProjectID,
		RequesterID: req.RequesterID,
		RequestID:   req.ID,
		From:        from,
		To:          req.Status,
		At:          w.now().UTC(),
	})
}
