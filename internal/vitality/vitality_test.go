// internal/vitality/vitality_test.go
package vitality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghost-vault/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func daysAgo(n int) time.Time { return fixedNow.Add(-time.Duration(n) * day) }

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights, clock)
	require.NoError(t, err)
	return s
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights.Validate())
	assert.Error(t, Weights{Popularity: 0.5, Activity: 0.5, Recency: 0.5}.Validate())
	assert.Error(t, Weights{Popularity: 1.2, Activity: -0.2, Recency: 0}.Validate())

	_, err := NewScorer(Weights{}, clock)
	assert.Error(t, err)
}

func TestScorer_Score(t *testing.T) {
	s := newTestScorer(t)

	t.Run("is deterministic and bounded", func(t *testing.T) {
		inputs := []model.RepoMetrics{
			{},
			{Stars: 1, Forks: 1, LastUpdatedAt: daysAgo(1)},
			{Stars: 5_000_000, Forks: 900_000, OpenIssues: 0, LastUpdatedAt: daysAgo(0)},
			{Stars: 12, OpenIssues: 100_000, LastUpdatedAt: daysAgo(10_000)},
			{Stars: 300, Forks: 40, OpenIssues: 12, LastUpdatedAt: daysAgo(90)},
		}
		for _, m := range inputs {
			first := s.Score(m)
			assert.Equal(t, first, s.Score(m))
			assert.GreaterOrEqual(t, first, 0)
			assert.LessOrEqual(t, first, 100)
		}
	})

	t.Run("empty and ancient repository scores low but defined", func(t *testing.T) {
		score := s.Score(model.RepoMetrics{LastUpdatedAt: daysAgo(3650)})
		assert.Equal(t, 10, score)
	})

	t.Run("huge fresh repository saturates", func(t *testing.T) {
		score := s.Score(model.RepoMetrics{Stars: 1_000_000, Forks: 100_000, LastUpdatedAt: daysAgo(2)})
		assert.Equal(t, 100, score)
	})

	t.Run("is monotonic in stars and forks", func(t *testing.T) {
		base := model.RepoMetrics{Forks: 3, OpenIssues: 7, LastUpdatedAt: daysAgo(60)}
		prev := -1
		for _, stars := range []int{0, 1, 2, 5, 10, 100, 1000, 10_000, 100_000} {
			m := base
			m.Stars = stars
			got := s.Score(m)
			assert.GreaterOrEqual(t, got, prev, "stars=%d", stars)
			prev = got
		}

		base = model.RepoMetrics{Stars: 40, LastUpdatedAt: daysAgo(60)}
		prev = -1
		for _, forks := range []int{0, 1, 3, 30, 300, 3000, 30_000} {
			m := base
			m.Forks = forks
			got := s.Score(m)
			assert.GreaterOrEqual(t, got, prev, "forks=%d", forks)
			prev = got
		}
	})

	t.Run("small projects gain more from a few stars", func(t *testing.T) {
		small := s.popularity(10, 0) - s.popularity(0, 0)
		large := s.popularity(10_010, 0) - s.popularity(10_000, 0)
		assert.Greater(t, small, large)
	})

	t.Run("open issues penalty is capped", func(t *testing.T) {
		assert.Equal(t, 100.0, s.activity(0))
		assert.Equal(t, 60.0, s.activity(10_000_000))
	})

	t.Run("future timestamp counts as fresh", func(t *testing.T) {
		future := model.RepoMetrics{Stars: 50, LastUpdatedAt: fixedNow.Add(72 * time.Hour)}
		now := model.RepoMetrics{Stars: 50, LastUpdatedAt: fixedNow}
		assert.Equal(t, s.Score(now), s.Score(future))
	})
}

func TestRecency(t *testing.T) {
	assert.Equal(t, 100.0, recency(0))
	assert.Equal(t, 100.0, recency(FreshWindow))
	assert.InDelta(t, 50.0, recency(105*day), 1e-9)
	assert.Equal(t, 0.0, recency(StaleWindow))
	assert.Equal(t, 0.0, recency(400*day))
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultActiveThreshold, clock)

	tests := []struct {
		name  string
		score int
		at    time.Time
		want  model.Status
	}{
		{"stale beats high score", 99, daysAgo(200), model.StatusHaunted},
		{"fresh and healthy", 80, daysAgo(5), model.StatusActive},
		{"fresh but weak", 10, daysAgo(5), model.StatusDormant},
		{"threshold is inclusive", 50, daysAgo(30), model.StatusActive},
		{"just past fresh window", 90, daysAgo(31), model.StatusDormant},
		{"edge of stale window", 90, daysAgo(180), model.StatusDormant},
		{"future timestamp", 70, fixedNow.Add(48 * time.Hour), model.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.score, tt.at)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, c.Classify(tt.score, tt.at))
		})
	}
}
