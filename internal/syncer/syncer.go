// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ghost-vault/internal/model"
)

const (
	// Number of projects to refresh in parallel
	concurrency = 5
)

// Refresher lists cataloged projects and re-appraises one of them.
type Refresher interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	Refresh(ctx context.Context, projectID string) (model.Project, error)
}

// CycleResult summarizes one refresh pass.
type CycleResult struct {
	Refreshed int
	Failed    int
}

// Syncer periodically re-appraises every cataloged project so scores and
// statuses follow the repositories they describe.
type Syncer struct {
	catalog      Refresher
	logger       *slog.Logger
	syncInterval time.Duration
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(catalog Refresher, logger *slog.Logger, interval time.Duration) *Syncer {
	return &Syncer{
		catalog:      catalog,
		logger:       logger,
		syncInterval: interval,
	}
}

// Start begins the continuous refresh process.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.syncInterval.String(), "concurrency", concurrency)
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.RunCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// RunCycle refreshes every stored project concurrently. A failing project is
// logged and does not stop the others.
func (s *Syncer) RunCycle(ctx context.Context) CycleResult {
	s.logger.Info("Starting new sync cycle")
	projects, err := s.catalog.ListProjects(ctx)
	if err != nil {
		s.logger.Error("Failed to list projects", "error", err)
		return CycleResult{}
	}

	var refreshed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, p := range projects {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := s.catalog.Refresh(gctx, p.ID)
			if err != nil {
				failed.Add(1)
				if !errors.Is(err, context.Canceled) {
					s.logger.Error("Failed to refresh project", "project_id", p.ID, "github_url", p.GithubURL, "error", err)
				}
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Sync cycle finished with an error", "error", err)
	}
	result := CycleResult{Refreshed: int(refreshed.Load()), Failed: int(failed.Load())}
	s.logger.Info("Sync cycle finished", "refreshed", result.Refreshed, "failed", result.Failed)
	return result
}
