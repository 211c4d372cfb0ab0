// internal/narrative/advisor.go
package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ghost-vault/internal/model"
)

// FallbackText is used whenever a narrative cannot be generated.
const FallbackText = "The spirits remain silent on this one. Perhaps its true nature will reveal itself in time."

// Request is the input to a narrative generator.
type Request struct {
	Title       string
	Description string
	Metrics     model.RepoMetrics
}

// Narrative is advisory text about a project. SuggestedStatus is a hint only.
type Narrative struct {
	Text            string
	SuggestedStatus model.Status
	Fallback        bool
}

// Generator produces a narrative for a project.
type Generator interface {
	Generate(ctx context.Context, req Request) (Narrative, error)
}

// Advisor bounds a Generator with a timeout and substitutes fallback text on failure.
type Advisor struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdvisor creates an Advisor. A nil generator always yields the fallback.
func NewAdvisor(gen Generator, timeout time.Duration, logger *slog.Logger) *Advisor {
	return &Advisor{gen: gen, timeout: timeout, logger: logger}
}

// Describe returns a narrative for the project. It never fails.
func (a *Advisor) Describe(ctx context.Context, req Request) Narrative {
	if a.gen == nil {
		return fallback()
	}
	logger := a.logger.With("title", req.Title)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// The generator may ignore ctx; don't let it hold the caller past the timeout.
	type result struct {
		n   Narrative
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := a.gen.Generate(ctx, req)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			logger.Warn("Narrative generation failed, using fallback", "error", r.err)
			return fallback()
		}
		if strings.TrimSpace(r.n.Text) == "" {
			logger.Warn("Narrative generator returned empty text, using fallback")
			return fallback()
		}
		return r.n
	case <-ctx.Done():
		logger.Warn("Narrative generation timed out, using fallback", "timeout", a.timeout, "error", ctx.Err())
		return fallback()
	}
}

func fallback() Narrative {
	return Narrative{Text: FallbackText, Fallback: true}
}
