// internal/vitality/classify.go
package vitality

import (
	"time"

	"ghost-vault/internal/model"
)

// DefaultActiveThreshold is the minimum score for a recently updated project to count as active.
const DefaultActiveThreshold = 50

// Classifier derives a project's lifecycle status. Its output is the only
// status ever persisted.
type Classifier struct {
	activeThreshold int
	now             func() time.Time
}

// NewClassifier creates a Classifier. A nil clock means time.Now.
func NewClassifier(activeThreshold int, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{activeThreshold: activeThreshold, now: now}
}

// Classify maps a score and last update time to active, dormant or haunted.
func (c *Classifier) Classify(score int, lastUpdatedAt time.Time) model.Status {
	age := elapsed(c.now(), lastUpdatedAt)
	switch {
	case age > StaleWindow:
		return model.StatusHaunted
	case age <= FreshWindow && score >= c.activeThreshold:
		return model.StatusActive
	case age <= StaleWindow:
		return model.StatusDormant
	default:
		return model.StatusHaunted
	}
}
