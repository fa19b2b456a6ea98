package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/jobmodel/idgen"
	"github.com/qualgent/job-orchestrator/internal/platform/logger"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/store/localstore"
)

func newScheduler(t *testing.T, cfg Config) (*Scheduler, store.Store) {
	t.Helper()
	st := localstore.New()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return New(st, cfg, log, nil), st
}

func mustQueue(t *testing.T, s *Scheduler, ctx context.Context, orgID, appVersionID string, priority jobmodel.Priority, target jobmodel.Target) *jobmodel.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &jobmodel.Job{
		ID: idgen.Job(),
		Payload: jobmodel.JobPayload{
			OrgID:        orgID,
			AppVersionID: appVersionID,
			TestPath:     "tests/smoke.py",
			Target:       target,
			Priority:     priority,
		},
		Status:    jobmodel.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		RetryCap:  3,
	}
	st := s.st
	if err := st.AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if _, err := s.QueueJob(ctx, job); err != nil {
		t.Fatalf("QueueJob: %v", err)
	}
	return job
}

func mustRegisterWorker(t *testing.T, st store.Store, ctx context.Context, id string, target jobmodel.Target) *jobmodel.Worker {
	t.Helper()
	w := &jobmodel.Worker{
		ID:            id,
		Name:          id,
		TargetTypes:   []jobmodel.Target{target},
		Status:        jobmodel.WorkerIdle,
		LastHeartbeat: time.Now().UTC(),
	}
	if err := st.AddWorker(ctx, w); err != nil {
		t.Fatalf("AddWorker: %v", err)
	}
	return w
}

// Two submissions sharing (org, app_version) coalesce into a single group.
func TestQueueJobGroupsByOrgAndAppVersion(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	j1 := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	j2 := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)

	groups, err := st.ListGroups(ctx, store.GroupFilter{})
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !groups[0].HasJob(j1.ID) || !groups[0].HasJob(j2.ID) {
		t.Fatalf("group %v missing a submitted job", groups[0])
	}
}

// A different (org, app_version) tuple starts its own group.
func TestQueueJobSeparatesDifferentAppVersions(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	mustQueue(t, s, ctx, "org-1", "v2", jobmodel.PriorityNormal, jobmodel.TargetEmulator)

	groups, err := st.ListGroups(ctx, store.GroupFilter{})
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

// sweepAssignment assigns a pending group's jobs to an idle matching worker.
func TestSweepAssignmentAssignsToIdleWorker(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)

	if err := s.sweepAssignment(ctx); err != nil {
		t.Fatalf("sweepAssignment: %v", err)
	}

	gotJob, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if gotJob.Status != jobmodel.StatusQueued {
		t.Errorf("expected job status queued, got %q", gotJob.Status)
	}
	if gotJob.WorkerID == nil || *gotJob.WorkerID != worker.ID {
		t.Errorf("expected job assigned to %q, got %v", worker.ID, gotJob.WorkerID)
	}
}

// Higher-priority pending groups are assigned before lower-priority ones
// when only one worker is available.
func TestSweepAssignmentOrdersByPriority(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	mustQueue(t, s, ctx, "org-low", "v1", jobmodel.PriorityLow, jobmodel.TargetEmulator)
	urgent := mustQueue(t, s, ctx, "org-urgent", "v1", jobmodel.PriorityUrgent, jobmodel.TargetEmulator)
	mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)

	if err := s.sweepAssignment(ctx); err != nil {
		t.Fatalf("sweepAssignment: %v", err)
	}

	gotUrgent, _ := st.GetJob(ctx, urgent.ID)
	if gotUrgent.Status != jobmodel.StatusQueued {
		t.Fatalf("expected the urgent job assigned first, got status %q", gotUrgent.Status)
	}

	lowJobs, _ := st.ListJobs(ctx, store.JobFilter{OrgID: "org-low"})
	if len(lowJobs) != 1 || lowJobs[0].Status != jobmodel.StatusPending {
		t.Fatalf("expected the low-priority job to remain pending with only one worker, got %v", lowJobs)
	}
}

// A heartbeat hands the assigned job back via NextJobForWorker.
func TestNextJobForWorkerReturnsAssignedJob(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)
	if err := s.sweepAssignment(ctx); err != nil {
		t.Fatalf("sweepAssignment: %v", err)
	}

	next, err := s.NextJobForWorker(ctx, worker.ID)
	if err != nil {
		t.Fatalf("NextJobForWorker: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("NextJobForWorker = %v, want %q", next, job.ID)
	}
}

func TestNextJobForWorkerUnknownWorker(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t, DefaultConfig())
	if _, err := s.NextJobForWorker(ctx, "missing"); err == nil {
		t.Fatal("expected error for unknown worker")
	}
}

// A worker that goes silent past WorkerTimeout is marked offline and its
// held jobs are returned to pending for reassignment (retries remain).
func TestSweepLivenessReassignsJobsFromStaleWorker(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, Config{ScheduleInterval: time.Second, WorkerTimeout: time.Minute, MaxRetries: 3})

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)
	if err := s.sweepAssignment(ctx); err != nil {
		t.Fatalf("sweepAssignment: %v", err)
	}

	stale, _ := st.GetWorker(ctx, worker.ID)
	stale.LastHeartbeat = time.Now().Add(-2 * time.Minute)
	if err := st.UpdateWorker(ctx, stale); err != nil {
		t.Fatalf("UpdateWorker: %v", err)
	}

	if err := s.sweepLiveness(ctx); err != nil {
		t.Fatalf("sweepLiveness: %v", err)
	}

	gotWorker, _ := st.GetWorker(ctx, worker.ID)
	if gotWorker.Status != jobmodel.WorkerOffline {
		t.Errorf("expected worker marked offline, got %q", gotWorker.Status)
	}

	gotJob, _ := st.GetJob(ctx, job.ID)
	if gotJob.Status != jobmodel.StatusPending {
		t.Errorf("expected job returned to pending after worker loss, got %q", gotJob.Status)
	}
	if gotJob.RetryCount != 1 {
		t.Errorf("expected retry_count incremented to 1, got %d", gotJob.RetryCount)
	}
}

// A job whose retries are exhausted by repeated worker loss fails outright.
func TestSweepLivenessFailsJobAtRetryCap(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, Config{ScheduleInterval: time.Second, WorkerTimeout: time.Minute, MaxRetries: 1})

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	job.RetryCount = job.RetryCap - 1
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)
	if err := s.sweepAssignment(ctx); err != nil {
		t.Fatalf("sweepAssignment: %v", err)
	}

	stale, _ := st.GetWorker(ctx, worker.ID)
	stale.LastHeartbeat = time.Now().Add(-2 * time.Minute)
	_ = st.UpdateWorker(ctx, stale)

	if err := s.sweepLiveness(ctx); err != nil {
		t.Fatalf("sweepLiveness: %v", err)
	}

	gotJob, _ := st.GetJob(ctx, job.ID)
	if gotJob.Status != jobmodel.StatusFailed {
		t.Errorf("expected job failed once retries exhausted, got %q", gotJob.Status)
	}
	if gotJob.ErrorMessage == nil || *gotJob.ErrorMessage == "" {
		t.Error("expected an error_message set on retry-cap failure")
	}
}

// A running job older than the execution timeout is failed and its
// worker released.
func TestSweepJobTimeoutsFailsLongRunningJob(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)
	if err := st.Assign(ctx, job.ID, worker.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	running, _ := st.GetJob(ctx, job.ID)
	started := time.Now().Add(-time.Hour)
	running.Status = jobmodel.StatusRunning
	running.StartedAt = &started
	if err := st.UpdateJob(ctx, running); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	if err := s.sweepJobTimeouts(ctx); err != nil {
		t.Fatalf("sweepJobTimeouts: %v", err)
	}

	gotJob, _ := st.GetJob(ctx, job.ID)
	if gotJob.Status != jobmodel.StatusFailed {
		t.Errorf("expected job failed on timeout, got %q", gotJob.Status)
	}

	gotWorker, _ := st.GetWorker(ctx, worker.ID)
	if gotWorker.HasJob(job.ID) {
		t.Error("expected worker released from timed-out job")
	}
}

func TestRetryRejectsBeyondCap(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	job.Status = jobmodel.StatusFailed
	job.RetryCount = job.RetryCap
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	if _, err := s.Retry(ctx, job.ID); err == nil {
		t.Fatal("expected error retrying a job at its retry cap")
	}
}

func TestRetryRequeuesFailedJob(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	job.Status = jobmodel.StatusFailed
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got.Status != jobmodel.StatusPending {
		t.Errorf("expected status pending after retry, got %q", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", got.RetryCount)
	}
}

func TestCancelRejectsTerminalJob(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	job.Status = jobmodel.StatusCompleted
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	if _, err := s.Cancel(ctx, job.ID); err == nil {
		t.Fatal("expected error cancelling an already-terminal job")
	}
}

func TestCancelReleasesAssignedWorker(t *testing.T) {
	ctx := context.Background()
	s, st := newScheduler(t, DefaultConfig())

	job := mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)
	worker := mustRegisterWorker(t, st, ctx, "worker-1", jobmodel.TargetEmulator)
	if err := st.Assign(ctx, job.ID, worker.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	got, err := s.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != jobmodel.StatusCancelled {
		t.Errorf("expected status cancelled, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at set on cancel")
	}

	gotWorker, _ := st.GetWorker(ctx, worker.ID)
	if gotWorker.HasJob(job.ID) {
		t.Error("expected worker released on cancel")
	}
}

func TestStatsReflectsQueueStateAndRunningFlag(t *testing.T) {
	ctx := context.Background()
	s, _ := newScheduler(t, DefaultConfig())

	mustQueue(t, s, ctx, "org-1", "v1", jobmodel.PriorityNormal, jobmodel.TargetEmulator)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.SchedulerRunning {
		t.Error("expected SchedulerRunning false before Run is called")
	}
	if stats.TotalJobs != 1 {
		t.Errorf("expected TotalJobs 1, got %d", stats.TotalJobs)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go s.Run(runCtx)
	waitUntil(t, func() bool {
		stats, err := s.Stats(ctx)
		return err == nil && stats.SchedulerRunning
	})
	cancel()
	waitUntil(t, func() bool {
		stats, err := s.Stats(ctx)
		return err == nil && !stats.SchedulerRunning
	})
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
