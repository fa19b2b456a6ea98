// Package submission is the front-end that turns a validated payload
// into a stored, scheduled job. Grounded on backend/app.py's submit_job
// route handler composed with scheduler.queue_job.
package submission

import (
	"context"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/jobmodel/idgen"
	"github.com/qualgent/job-orchestrator/internal/scheduler"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/submission/submiterr"
)

// Request is the inbound submission payload before defaults are applied.
type Request struct {
	OrgID        string
	AppVersionID string
	TestPath     string
	Target       jobmodel.Target
	Priority     jobmodel.Priority
	Metadata     map[string]any
}

// Service wires the store and scheduler together for job submission.
type Service struct {
	st         store.Store
	sched      *scheduler.Scheduler
	maxRetries int
}

// New constructs a submission service. maxRetries becomes every
// created job's retry cap, per spec.md §6's MAX_RETRIES configuration.
func New(st store.Store, sched *scheduler.Scheduler, maxRetries int) *Service {
	return &Service{st: st, sched: sched, maxRetries: maxRetries}
}

// Submit validates req, constructs and stores the job, and enters it
// into the scheduler's submission path. Returns the stored job.
func (s *Service) Submit(ctx context.Context, req Request) (*jobmodel.Job, error) {
	if req.OrgID == "" || req.AppVersionID == "" || req.TestPath == "" {
		return nil, submiterr.Validation("org_id, app_version_id, and test_path are required")
	}
	if req.Target == "" {
		req.Target = jobmodel.TargetEmulator
	}
	if req.Priority == "" {
		req.Priority = jobmodel.PriorityNormal
	}

	now := time.Now().UTC()
	job := &jobmodel.Job{
		ID: idgen.Job(),
		Payload: jobmodel.JobPayload{
			OrgID:        req.OrgID,
			AppVersionID: req.AppVersionID,
			TestPath:     req.TestPath,
			Target:       req.Target,
			Priority:     req.Priority,
			Metadata:     req.Metadata,
		},
		Status:     jobmodel.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		RetryCount: 0,
		RetryCap:   s.maxRetries,
	}

	if err := s.st.AddJob(ctx, job); err != nil {
		return nil, err
	}
	if _, err := s.sched.QueueJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
