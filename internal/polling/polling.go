// Package polling is the worker-facing front-end: registration and the
// heartbeat/next-job handoff. Grounded on backend/app.py's worker
// registration and heartbeat routes composed with
// scheduler.get_next_job_for_worker.
package polling

import (
	"context"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/jobmodel/idgen"
	"github.com/qualgent/job-orchestrator/internal/scheduler"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/submission/submiterr"
)

// RegisterRequest is the inbound worker-registration payload.
type RegisterRequest struct {
	Name        string
	TargetTypes []jobmodel.Target
	Metadata    map[string]any
}

// Heartbeat is the result of a worker's heartbeat call.
type Heartbeat struct {
	Status  string
	NextJob *jobmodel.Job
}

// Service wires the store and scheduler together for worker lifecycle.
type Service struct {
	st    store.Store
	sched *scheduler.Scheduler
}

// New constructs a polling service.
func New(st store.Store, sched *scheduler.Scheduler) *Service {
	return &Service{st: st, sched: sched}
}

// Register validates req and stores a freshly idle worker.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*jobmodel.Worker, error) {
	if req.Name == "" || len(req.TargetTypes) == 0 {
		return nil, submiterr.Validation("name and target_types are required")
	}
	worker := &jobmodel.Worker{
		ID:            idgen.Worker(),
		Name:          req.Name,
		TargetTypes:   req.TargetTypes,
		Status:        jobmodel.WorkerIdle,
		CurrentJobs:   nil,
		LastHeartbeat: time.Now().UTC(),
		Metadata:      req.Metadata,
	}
	if err := s.st.AddWorker(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

// Heartbeat implements the heartbeat-and-pull contract of spec.md
// §4.4: refresh liveness, persist, then hand back the next assigned
// job if one exists. Status is left untouched here; only the liveness
// sweep ever transitions a worker to offline, per app.py's
// worker_heartbeat route.
func (s *Service) Heartbeat(ctx context.Context, workerID string) (Heartbeat, error) {
	worker, err := s.st.GetWorker(ctx, workerID)
	if err != nil {
		return Heartbeat{}, err
	}

	worker.LastHeartbeat = time.Now().UTC()
	if err := s.st.UpdateWorker(ctx, worker); err != nil {
		return Heartbeat{}, err
	}

	next, err := s.sched.NextJobForWorker(ctx, workerID)
	if err != nil {
		return Heartbeat{}, err
	}
	return Heartbeat{Status: "ok", NextJob: next}, nil
}
