//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"ghost-vault/internal/catalog"
	"ghost-vault/internal/database"
	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/github"
	"ghost-vault/internal/interest"
	"ghost-vault/internal/model"
	"ghost-vault/internal/narrative"
	"ghost-vault/internal/notify"
	"ghost-vault/internal/vitality"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ghost-vault"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, runMigrations("file://../../migrations", connStr))

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	teardown := func() {
		dbpool.Close()
		require.NoError(t, testcontainers.TerminateContainer(pgContainer))
	}
	return dbpool, teardown
}

type stack struct {
	store    *database.Store
	feed     *interest.Feed
	workflow *interest.Workflow
	catalog  *catalog.Catalog
}

func newStack(t *testing.T, dbpool *pgxpool.Pool, githubURL string) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ghClient, err := github.NewClient("", logger).WithBaseURL(githubURL)
	require.NoError(t, err)
	scorer, err := vitality.NewScorer(vitality.DefaultWeights, nil)
	require.NoError(t, err)
	advisor := narrative.NewAdvisor(nil, time.Second, logger)

	dispatcher := notify.NewDispatcher(logger)
	t.Cleanup(dispatcher.Wait)

	s := &stack{store: database.NewStore(dbpool, logger), feed: interest.NewFeed()}
	s.workflow = interest.NewWorkflow(s.store, s.feed, dispatcher, logger)
	s.catalog = catalog.New(ghClient, scorer, vitality.NewClassifier(vitality.DefaultActiveThreshold, nil), advisor, s.store, logger)
	return s
}

func fakeGitHub(t *testing.T) *httptest.Server {
	pushed := time.Now().AddDate(-1, 0, 0).UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octo/forgotten" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"forgotten","owner":{"login":"octo"},"description":"left behind",
			"html_url":"https://github.com/octo/forgotten","stargazers_count":4,"forks_count":1,
			"open_issues_count":9,"pushed_at":%q}`, pushed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGhostVault_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	s := newStack(t, dbpool, fakeGitHub(t).URL)
	owner := model.Identity{ID: "u-owner", Name: "Owner", Email: "owner@example.com"}

	project, err := s.catalog.AddProject(ctx, catalog.NewProject{
		Title: "Forgotten", GithubURL: "https://github.com/octo/forgotten", Creator: owner,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusHaunted, project.Status)
	assert.Equal(t, narrative.FallbackText, project.GhostLog)

	refreshed, err := s.catalog.Refresh(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.VitalityScore, refreshed.VitalityScore)

	t.Run("concurrent submits for one pair store exactly one request", func(t *testing.T) {
		requester := model.Identity{ID: "u-racer", Name: "Racer", Email: "racer@example.com"}
		const attempts = 10

		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = s.workflow.Submit(ctx, project.ID, requester, "me first")
			}()
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, custom_errors.ErrDuplicateRequest):
				dup++
			default:
				t.Errorf("unexpected submit error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, attempts-1, dup)

		reqs, err := s.workflow.ListForProject(ctx, project.ID)
		require.NoError(t, err)
		count := 0
		for _, r := range reqs {
			if r.RequesterID == requester.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("decided requests are terminal", func(t *testing.T) {
		requester := model.Identity{ID: "u-ada", Name: "Ada", Email: "ada@example.com"}
		req, err := s.workflow.Submit(ctx, project.ID, requester, "let me")
		require.NoError(t, err)

		decided, err := s.workflow.DecideAs(ctx, req.ID, owner, model.InterestApproved)
		require.NoError(t, err)
		assert.True(t, decided.DecidedAt.Valid)

		_, err = s.workflow.DecideAs(ctx, req.ID, owner, model.InterestRejected)
		assert.ErrorIs(t, err, custom_errors.ErrInvalidTransition)

		status, err := s.workflow.CurrentStatus(ctx, project.ID, requester.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InterestApproved, status)
	})

	t.Run("listener relays changes committed by another instance", func(t *testing.T) {
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// The watching instance only sees changes through Postgres.
		watcher := newStack(t, dbpool, "http://127.0.0.1:0")
		go database.NewListener(dbpool, watcher.feed, slog.Default()).Start(listenCtx)

		requester := model.Identity{ID: "u-grace", Name: "Grace", Email: "grace@example.com"}
		changes := make(chan model.StatusChange, 4)
		sub, err := watcher.workflow.WatchStatus(listenCtx, project.ID, requester.ID, func(c model.StatusChange) bool {
			changes <- c
			return true
		})
		require.NoError(t, err)
		defer sub.Cancel()

		next := func() model.StatusChange {
			t.Helper()
			select {
			case c := <-changes:
				return c
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for status change")
			}
			return model.StatusChange{}
		}
		assert.Equal(t, model.InterestNone, next().To)

		// Give the listener time to issue LISTEN before the write.
		time.Sleep(500 * time.Millisecond)

		req, err := s.workflow.Submit(ctx, project.ID, requester, "from another node")
		require.NoError(t, err)
		pending := next()
		assert.Equal(t, model.InterestPending, pending.To)
		assert.Equal(t, req.ID, pending.RequestID)

		_, err = s.workflow.DecideAs(ctx, req.ID, owner, model.InterestRejected)
		require.NoError(t, err)
		assert.Equal(t, model.InterestRejected, next().To)
	})
}
