// internal/model/models.go
package model

import (
	"database/sql" // sql.NullTime for DecidedAt
	"time"
)

// Status is the lifecycle classification of a project.
type Status string

const (
	StatusActive  Status = "active"
	StatusDormant Status = "dormant"
	StatusHaunted Status = "haunted"
)

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDormant, StatusHaunted:
		return true
	}
	return false
}

// InterestStatus is the state of an interest request for one (project, requester) pair.
type InterestStatus string

const (
	InterestNone     InterestStatus = "none"
	InterestPending  InterestStatus = "pending"
	InterestApproved InterestStatus = "approved"
	InterestRejected InterestStatus = "rejected"
)

// Terminal reports whether no further transitions are allowed from s.
func (s InterestStatus) Terminal() bool {
	return s == InterestApproved || s == InterestRejected
}

// Rank orders states along the only path the state machine allows.
func (s InterestStatus) Rank() int {
	switch s {
	case InterestPending:
		return 1
	case InterestApproved, InterestRejected:
		return 2
	default:
		return 0
	}
}

// RepoMetrics is a snapshot of repository statistics returned by the metrics gateway.
type RepoMetrics struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"htmlUrl"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"openIssues"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Project is a cataloged repository.
type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	GithubURL     string    `json:"githubUrl"`
	Description   string    `json:"description"`
	CreatorID     string    `json:"creatorId"`
	CreatorName   string    `json:"creatorName"`
	CreatorEmail  string    `json:"creatorEmail"`
	VitalityScore int       `json:"vitalityScore"`
	Status        Status    `json:"status"`
	GhostLog      string    `json:"ghostLog"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"openIssues"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// InterestRequest is a requester's expression of interest in reviving a project.
type InterestRequest struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"projectId"`
	RequesterID    string         `json:"requesterId"`
	RequesterName  string         `json:"requesterName"`
	RequesterEmail string         `json:"requesterEmail"`
	Message        string         `json:"message"`
	Status         InterestStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	DecidedAt      sql.NullTime   `json:"-"`
}

// Identity is an authenticated caller as reported by the identity provider.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Authenticated reports whether the identity carries a subject id.
func (i Identity) Authenticated() bool {
	return i.ID != ""
}

// StatusChange describes one observed transition for a (project, requester) pair.
// The first event of a watch carries From == To.
type StatusChange struct {
	ProjectID   string         `json:"projectId"`
	RequesterID string         `json:"requesterId"`
	RequestID   string         `json:"requestId,omitempty"`
	From        InterestStatus `json:"from"`
	To          InterestStatus `json:"to"`
	At          time.Time      `json:"at"`
}
