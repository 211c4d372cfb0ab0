// internal/vitality/score.go
package vitality

import (
	"fmt"
	"math"
	"time"

	"ghost-vault/internal/model"
)

const (
	day = 24 * time.Hour

	// FreshWindow is the age up to which a repository gets full recency credit.
	FreshWindow = 30 * day
	// StaleWindow is the age after which a repository gets no recency credit.
	StaleWindow = 180 * day

	weightTolerance = 1e-9
)

// Weights sets how much each normalized component contributes to the score.
type Weights struct {
	Popularity float64 `mapstructure:"SCORE_WEIGHT_POPULARITY"`
	Activity   float64 `mapstructure:"SCORE_WEIGHT_ACTIVITY"`
	Recency    float64 `mapstructure:"SCORE_WEIGHT_RECENCY"`
}

// DefaultWeights favours popularity and recency; open issues are a weak signal.
var DefaultWeights = Weights{Popularity: 0.5, Activity: 0.1, Recency: 0.4}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w Weights) Validate() error {
	if w.Popularity < 0 || w.Activity < 0 || w.Recency < 0 {
		return fmt.Errorf("score weights must be non-negative, got %+v", w)
	}
	if sum := w.Popularity + w.Activity + w.Recency; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("score weights must sum to 1.0, got %g", sum)
	}
	return nil
}

// Curve holds the log-scale constants of the popularity and activity components.
type Curve struct {
	StarScale       float64
	ForkScale       float64
	IssueScale      float64
	IssuePenaltyCap float64
}

// DefaultCurve reaches full popularity at about 10k stars with no forks.
var DefaultCurve = Curve{StarScale: 25, ForkScale: 15, IssueScale: 10, IssuePenaltyCap: 40}

// Scorer turns repository metrics into a vitality score in [0,100].
type Scorer struct {
	weights Weights
	curve   Curve
	now     func() time.Time
}

// NewScorer creates a Scorer. A nil clock means time.Now.
func NewScorer(w Weights, now func() time.Time) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{weights: w, curve: DefaultCurve, now: now}, nil
}

// Score returns the weighted, clamped vitality score. It never fails.
func (s *Scorer) Score(m model.RepoMetrics) int {
	total := s.weights.Popularity*s.popularity(m.Stars, m.Forks) +
		s.weights.Activity*s.activity(m.OpenIssues) +
		s.weights.Recency*recency(elapsed(s.now(), m.LastUpdatedAt))
	return int(math.Round(clamp(total)))
}

func (s *Scorer) popularity(stars, forks int) float64 {
	return math.Min(100, logScale(stars)*s.curve.StarScale+logScale(forks)*s.curve.ForkScale)
}

func (s *Scorer) activity(openIssues int) float64 {
	penalty := math.Min(s.curve.IssuePenaltyCap, logScale(openIssues)*s.curve.IssueScale)
	return 100 - penalty
}

// recency gives full credit inside FreshWindow, decaying linearly to zero at StaleWindow.
func recency(age time.Duration) float64 {
	switch {
	case age <= FreshWindow:
		return 100
	case age >= StaleWindow:
		return 0
	}
	return 100 * float64(StaleWindow-age) / float64(StaleWindow-FreshWindow)
}

func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log10(1 + float64(n))
}

// elapsed clamps future timestamps to zero age.
func elapsed(now, at time.Time) time.Duration {
	if at.After(now) {
		return 0
	}
	return now.Sub(at)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
