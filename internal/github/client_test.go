// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "ghost-vault/internal/errors"
)

const repoJSON = `{"id": 1, "name": "repo", "owner": {"login": "test"}, "description": "a ghost",
	"html_url": "https://github.com/test/repo", "stargazers_count": 42, "forks_count": 7,
	"open_issues_count": 3, "updated_at": "2024-03-01T00:00:00Z", "pushed_at": "2024-02-01T00:00:00Z"}`

// setupTestClient creates a httptest server and a github client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	// We can pass an empty token because we are not authenticating to the real GitHub.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient("", logger).WithBaseURL(server.URL)
	require.NoError(t, err)
	client.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(5 * time.Millisecond) }

	return client, server
}

func TestClient_GetRepository_Retry(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/repos/test/repo", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		repo, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Equal(t, "repo", repo.GetName())
	})

	t.Run("retries on 503 server error and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.WriteHeader(http.StatusServiceUnavailable) // Fail first time
				return
			}
			w.WriteHeader(http.StatusOK) // Succeed second time
			fmt.Fprintln(w, repoJSON)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "should have made two requests")
	})

	t.Run("handles rate limit error", func(t *testing.T) {
		var requestCount int32
		// The reset header has second precision, so this lands at least 500ms out.
		resetTime := time.Now().Add(1500 * time.Millisecond)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
				w.WriteHeader(http.StatusForbidden) // RateLimitError is a 403
				fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		startTime := time.Now()
		_, err := client.GetRepository(context.Background(), "test", "repo")
		elapsed := time.Since(startTime)

		require.NoError(t, err)
		assert.True(t, elapsed >= 400*time.Millisecond, "client should wait for rate limit reset")
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("fails after max retries on persistent server error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.Error(t, err)
		var ghErr *github.ErrorResponse
		require.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusInternalServerError, ghErr.Response.StatusCode)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&requestCount))
	})

	t.Run("does not retry not found", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})
}

func TestClient_WithBaseURL(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/repos/test/repo", r.URL.Path)
		fmt.Fprintln(w, repoJSON)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := NewClient("", logger)
	client, err := base.WithBaseURL(server.URL)
	require.NoError(t, err)

	repo, _, err := client.gh.Repositories.Get(context.Background(), "test", "repo")

	require.NoError(t, err)
	assert.Equal(t, "repo", repo.GetName())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, server.URL+"/", client.gh.BaseURL.String())
	assert.Equal(t, "https://api.github.com/", base.gh.BaseURL.String(), "the original client keeps its host")
}

func TestClient_FetchMetrics(t *testing.T) {
	t.Run("translates repository statistics", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, repoJSON)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		m, err := client.FetchMetrics(context.Background(), "https://github.com/test/repo")

		require.NoError(t, err)
		assert.Equal(t, 42, m.Stars)
		assert.Equal(t, 7, m.Forks)
		assert.Equal(t, 3, m.OpenIssues)
		assert.Equal(t, "a ghost", m.Description)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), m.LastUpdatedAt.UTC())
	})

	t.Run("maps failures to fetch unavailable", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.FetchMetrics(context.Background(), "test/repo")
		assert.ErrorIs(t, err, custom_errors.ErrFetchUnavailable)

		_, err = client.FetchMetrics(context.Background(), "not a url")
		assert.ErrorIs(t, err, custom_errors.ErrFetchUnavailable)
	})
}

func TestParseRepoURL(t *testing.T) {
	valid := map[string]RepoIdentifier{
		"owner/name":                                  {"owner", "name"},
		"https://github.com/owner/name":               {"owner", "name"},
		"https://www.github.com/owner/name.git":       {"owner", "name"},
		"https://github.com/owner/name/tree/main/sub": {"owner", "name"},
		"github.com/owner/name":                       {"owner", "name"},
		"git@github.com:owner/name.git":               {"owner", "name"},
		"  https://github.com/owner/name/  ":          {"owner", "name"},
	}
	for in, want := range valid {
		got, err := ParseRepoURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "owner", "https://gitlab.com/owner/name", "https://github.com/owner", "a/b/c", "git@gitlab.com:o/n.git"} {
		_, err := ParseRepoURL(in)
		var formatErr *custom_errors.ErrInvalidRepoFormat
		assert.ErrorAs(t, err, &formatErr, in)
	}
}
