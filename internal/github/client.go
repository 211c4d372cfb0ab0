// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "ghost-vault/internal/errors"
	"ghost-vault/internal/model"
)

const (
	// maxRetries is the total number of attempts made for one request.
	maxRetries = 3
	// maxRateLimitWait bounds how long a request waits for a rate limit reset.
	maxRateLimitWait = time.Minute
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh      *github.Client
	hc      *http.Client
	logger  *slog.Logger
	backoff func() backoff.BackOff
}

// NewClient creates and configures a new Client instance.
// A non-empty token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:      github.NewClient(hc),
		hc:      hc,
		logger:  logger,
		backoff: defaultBackoff,
	}
}

// WithBaseURL points the client at another API root, e.g. a GitHub Enterprise host.
func (c *Client) WithBaseURL(rawURL string) (*Client, error) {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	// A copied client's services still point at the original.
	gh := github.NewClient(c.hc)
	gh.BaseURL = u
	return &Client{gh: gh, hc: c.hc, logger: c.logger, backoff: c.backoff}, nil
}

// FetchMetrics resolves a repository URL and returns its current statistics.
// Every failure wraps custom_errors.ErrFetchUnavailable.
func (c *Client) FetchMetrics(ctx context.Context, repoURL string) (model.RepoMetrics, error) {
	id, err := ParseRepoURL(repoURL)
	if err != nil {
		return model.RepoMetrics{}, err
	}
	repo, err := c.GetRepository(ctx, id.Owner, id.Name)
	if err != nil {
		return model.RepoMetrics{}, fmt.Errorf("%w: %s: %w", custom_errors.ErrFetchUnavailable, id.FullName(), err)
	}
	return toRepoMetrics(repo), nil
}

// GetRepository fetches repository details, retrying transient failures.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	logger := c.logger.With("owner", owner, "repo", name)

	op := func() (*github.Repository, error) {
		repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
		if err == nil {
			return repo, nil
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			if waitErr := waitForReset(ctx, rateErr.Rate.Reset.Time); waitErr != nil {
				return nil, backoff.Permanent(err)
			}
		}
		return nil, err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("GitHub request failed, retrying", "error", err, "backoff", next)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), maxRetries-1), ctx)
	return backoff.RetryNotifyWithData(op, b, notify)
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// retryable reports whether a failed request may succeed on another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError
	}
	// Transport-level failure.
	return true
}

func waitForReset(ctx context.Context, reset time.Time) error {
	wait := time.Until(reset)
	if wait <= 0 {
		return nil
	}
	if wait > maxRateLimitWait {
		return fmt.Errorf("rate limit resets in %s", wait.Round(time.Second))
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// toRepoMetrics translates a github.Repository object to our internal model.RepoMetrics.
// The last push is preferred over the last metadata update as the activity timestamp.
func toRepoMetrics(r *github.Repository) model.RepoMetrics {
	last := r.GetPushedAt().Time
	if last.IsZero() {
		last = r.GetUpdatedAt().Time
	}
	return model.RepoMetrics{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		HTMLURL:       r.GetHTMLURL(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		LastUpdatedAt: last,
	}
}
