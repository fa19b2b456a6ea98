// Package store defines the concurrent repository contract shared by
// the local (in-memory) and remote (Redis) backends: CRUD and filtered
// list operations over jobs, groups, and workers, plus the
// cross-entity atomics and derived joins the scheduler relies on.
//
// Grounded on backend/job_store.py's JobStore (method set) and
// backend/redis_job_store.py's RedisJobStore (same surface, second
// backend) in the original Python service this was distilled from.
package store

import (
	"context"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
)

// JobFilter narrows List results. Zero-value fields are unconstrained.
type JobFilter struct {
	OrgID        string
	Status       jobmodel.Status
	AppVersionID string

	hasStatus bool
}

// WithStatus returns a copy of f constrained to the given status.
func (f JobFilter) WithStatus(s jobmodel.Status) JobFilter {
	f.Status = s
	f.hasStatus = true
	return f
}

// HasStatus reports whether a status constraint was set.
func (f JobFilter) HasStatus() bool { return f.hasStatus }

// GroupFilter narrows group List results.
type GroupFilter struct {
	OrgID string
}

// WorkerFilter narrows worker List results.
type WorkerFilter struct {
	Target    jobmodel.Target
	Status    jobmodel.WorkerStatus
	hasTarget bool
	hasStatus bool
}

// WithTarget returns a copy of f constrained to the given target.
func (f WorkerFilter) WithTarget(t jobmodel.Target) WorkerFilter {
	f.Target = t
	f.hasTarget = true
	return f
}

// WithStatus returns a copy of f constrained to the given status.
func (f WorkerFilter) WithStatus(s jobmodel.WorkerStatus) WorkerFilter {
	f.Status = s
	f.hasStatus = true
	return f
}

func (f WorkerFilter) HasTarget() bool { return f.hasTarget }
func (f WorkerFilter) HasStatus() bool { return f.hasStatus }

// QueueStats is the derived join spec.md §4.1 calls "queue-statistics".
type QueueStats struct {
	TotalJobs     int            `json:"total_jobs"`
	ByStatus      map[string]int `json:"by_status"`
	TotalGroups   int            `json:"total_groups"`
	TotalWorkers  int            `json:"total_workers"`
	IdleWorkers   int            `json:"idle_workers"`
	BusyWorkers   int            `json:"busy_workers"`
}

// Store is the capability set every backend implements. Every
// operation is atomic with respect to concurrent calls.
type Store interface {
	// Jobs
	AddJob(ctx context.Context, job *jobmodel.Job) error
	GetJob(ctx context.Context, id string) (*jobmodel.Job, error)
	UpdateJob(ctx context.Context, job *jobmodel.Job) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]*jobmodel.Job, error)
	JobsByStatus(ctx context.Context, status jobmodel.Status) ([]*jobmodel.Job, error)
	JobsByGroup(ctx context.Context, groupID string) ([]*jobmodel.Job, error)

	// Groups
	AddGroup(ctx context.Context, group *jobmodel.Group) error
	GetGroup(ctx context.Context, id string) (*jobmodel.Group, error)
	UpdateGroup(ctx context.Context, group *jobmodel.Group) error
	ListGroups(ctx context.Context, filter GroupFilter) ([]*jobmodel.Group, error)
	FindActiveGroupFor(ctx context.Context, orgID, appVersionID string) (*jobmodel.Group, error)

	// Workers
	AddWorker(ctx context.Context, worker *jobmodel.Worker) error
	GetWorker(ctx context.Context, id string) (*jobmodel.Worker, error)
	UpdateWorker(ctx context.Context, worker *jobmodel.Worker) error
	ListWorkers(ctx context.Context, filter WorkerFilter) ([]*jobmodel.Worker, error)
	AvailableWorkers(ctx context.Context, target jobmodel.Target) ([]*jobmodel.Worker, error)

	// Cross-entity atomics
	Assign(ctx context.Context, jobID, workerID string) error
	Complete(ctx context.Context, jobID, workerID string) error

	// Derived
	QueueStats(ctx context.Context) (QueueStats, error)

	// Maintenance
	RetentionSweep(ctx context.Context, horizon time.Duration) (int, error)
}
