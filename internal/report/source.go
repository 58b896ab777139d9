package report

import (
	"context"
	"errors"
	"slices"
	"time"
)

var (
	// ErrUnauthorized marks a source failure that retrying cannot fix
	// (bad credentials, missing permissions, unknown repository).
	ErrUnauthorized = errors.New("source rejected credentials")

	// ErrDegraded marks a source that returned less than the full window:
	// pagination halted early or a lazily computed resource never became ready.
	ErrDegraded = errors.New("source returned partial data")

	ErrNoSources = errors.New("no data sources configured")
)

const bugLabel = "bug"

// CommitWeek is one bucket of the repository commit-activity resource.
type CommitWeek struct {
	WeekStart int64 `json:"week"` // unix seconds
	Total     int   `json:"total"`
}

type PullRequest struct {
	ID        string     `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	MergedAt  *time.Time `json:"mergedAt,omitempty"`
	Labels    []string   `json:"labels"`
}

func (p PullRequest) HasLabel(name string) bool {
	return slices.Contains(p.Labels, name)
}

func (p PullRequest) IsBug() bool {
	return p.HasLabel(bugLabel)
}

func (p PullRequest) Merged() bool {
	return p.MergedAt != nil
}

type Deployment struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	URL         string     `json:"url"`
	List        string     `json:"list"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	IsBug       bool       `json:"isBug"`
}

// Window is the analysis period. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// RepositorySource supplies the version-control side of the report.
type RepositorySource interface {
	Name() string
	HealthCheck(ctx context.Context) error
	CommitActivity(ctx context.Context) ([]CommitWeek, error)
	PullRequests(ctx context.Context, w Window) ([]PullRequest, error)
	Deployments(ctx context.Context, w Window) ([]Deployment, error)
}

// TaskSource supplies task-tracker items completed within the window.
type TaskSource interface {
	Name() string
	HealthCheck(ctx context.Context) error
	Tasks(ctx context.Context, w Window) ([]Task, error)
}
