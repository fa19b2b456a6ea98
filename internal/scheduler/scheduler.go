// Package scheduler drives the job FSM: it assigns pending groups to
// idle workers, enforces priority order, and sweeps for stale workers
// and timed-out jobs. Grounded line-for-line on backend/scheduler.py's
// JobScheduler in the original Python service.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/jobmodel/idgen"
	"github.com/qualgent/job-orchestrator/internal/observability"
	"github.com/qualgent/job-orchestrator/internal/platform/logger"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/store/storeerr"
)

const jobTimeout = 30 * time.Minute

// Config holds the scheduler's immutable tuning knobs, set once at
// construction per spec.md §5's "immutable after construction" rule.
type Config struct {
	ScheduleInterval time.Duration
	WorkerTimeout    time.Duration
	MaxRetries       int
}

// DefaultConfig matches scheduler.py's class defaults.
func DefaultConfig() Config {
	return Config{
		ScheduleInterval: 5 * time.Second,
		WorkerTimeout:    300 * time.Second,
		MaxRetries:       3,
	}
}

// Scheduler is the single authoritative instance per spec.md's
// Non-goals (no distributed coordination).
type Scheduler struct {
	cfg     Config
	st      store.Store
	log     *logger.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	running bool
}

// New constructs a scheduler over st. It does not start the sweep
// loop; call Run for that. metrics may be nil (METRICS_ENABLED=false).
func New(st store.Store, cfg Config, log *logger.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{cfg: cfg, st: st, log: log, metrics: metrics}
}

func groupPriority(jobs []*jobmodel.Job) int {
	max := 0
	for _, j := range jobs {
		if w := j.Payload.Priority.Weight(); w > max {
			max = w
		}
	}
	return max
}

// QueueJob implements the submission path (queue_job): attach the
// freshly-stored job to its active group, creating one if none exists.
func (s *Scheduler) QueueJob(ctx context.Context, job *jobmodel.Job) (*jobmodel.Group, error) {
	group, err := s.st.FindActiveGroupFor(ctx, job.Payload.OrgID, job.Payload.AppVersionID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		group = &jobmodel.Group{
			ID:           idgen.Group(),
			OrgID:        job.Payload.OrgID,
			AppVersionID: job.Payload.AppVersionID,
			JobIDs:       []string{job.ID},
			Status:       jobmodel.StatusPending,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.st.AddGroup(ctx, group); err != nil {
			return nil, err
		}
	} else {
		if !group.HasJob(job.ID) {
			group.JobIDs = append(group.JobIDs, job.ID)
		}
		if err := s.st.UpdateGroup(ctx, group); err != nil {
			return nil, err
		}
	}

	job.Status = jobmodel.StatusPending
	job.UpdatedAt = time.Now().UTC()
	if err := s.st.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return group, nil
}

// Run launches the sweep loop and blocks until ctx is cancelled,
// matching the original's daemon thread (threading.Thread(target=
// self._scheduler_loop, daemon=True)) translated to a goroutine the
// composition root owns.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.cfg.ScheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one sweep: assignment, liveness, job-timeout. Any error is
// logged and swallowed so a single failed tick never stops the loop,
// per spec.md §4.2.
func (s *Scheduler) tick(ctx context.Context) {
	s.timedSweep(ctx, "assignment", s.sweepAssignment)
	s.timedSweep(ctx, "liveness", s.sweepLiveness)
	s.timedSweep(ctx, "job_timeout", s.sweepJobTimeouts)

	if qs, err := s.st.QueueStats(ctx); err == nil {
		for status, count := range qs.ByStatus {
			s.metrics.SetQueueDepth(status, count)
		}
	}
}

func (s *Scheduler) timedSweep(ctx context.Context, phase string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveSweep(phase, time.Since(start).Seconds())
	if err != nil {
		s.log.Error("scheduler sweep failed", "phase", phase, "error", err)
	}
}

// sweepAssignment implements _schedule_jobs / _assign_group_to_worker.
func (s *Scheduler) sweepAssignment(ctx context.Context) error {
	groups, err := s.st.ListGroups(ctx, store.GroupFilter{})
	if err != nil {
		return err
	}

	type scored struct {
		group    *jobmodel.Group
		jobs     []*jobmodel.Job
		priority int
	}
	var pending []scored
	for _, g := range groups {
		if g.Status != jobmodel.StatusPending {
			continue
		}
		jobs, err := s.st.JobsByGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			continue
		}
		pending = append(pending, scored{group: g, jobs: jobs, priority: groupPriority(jobs)})
	}

	sortByPriorityThenCreatedAt(pending, func(i int) int { return pending[i].priority }, func(i int) time.Time { return pending[i].group.CreatedAt })

	for _, sc := range pending {
		target := sc.jobs[0].Payload.Target
		workers, err := s.st.AvailableWorkers(ctx, target)
		if err != nil {
			return err
		}
		if len(workers) == 0 {
			continue
		}
		worker := workers[0]

		for _, j := range sc.jobs {
			if err := s.st.Assign(ctx, j.ID, worker.ID); err != nil {
				return err
			}
			s.metrics.AssignmentMade()
		}
		sc.group.Status = jobmodel.StatusQueued
		sc.group.WorkerID = strPtr(worker.ID)
		if err := s.st.UpdateGroup(ctx, sc.group); err != nil {
			return err
		}
	}
	return nil
}

// sortByPriorityThenCreatedAt is a tiny insertion sort; the candidate
// lists here are small (pending groups per tick), so O(n^2) is fine
// and keeps the comparator inline without importing sort for two keys.
func sortByPriorityThenCreatedAt[T any](items []T, priority func(int) int, createdAt func(int) time.Time) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			if priority(j) > priority(j-1) || (priority(j) == priority(j-1) && createdAt(j).Before(createdAt(j-1))) {
				items[j-1], items[j] = items[j], items[j-1]
			} else {
				break
			}
		}
	}
}

// sweepLiveness implements _cleanup_stale_workers / _reassign_worker_jobs.
func (s *Scheduler) sweepLiveness(ctx context.Context) error {
	workers, err := s.st.ListWorkers(ctx, store.WorkerFilter{})
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-s.cfg.WorkerTimeout)

	for _, w := range workers {
		if w.Status == jobmodel.WorkerOffline {
			continue
		}
		if !w.LastHeartbeat.Before(cutoff) {
			continue
		}

		held := append([]string(nil), w.CurrentJobs...)
		w.Status = jobmodel.WorkerOffline
		if err := s.st.UpdateWorker(ctx, w); err != nil {
			return err
		}

		for _, jobID := range held {
			j, err := s.st.GetJob(ctx, jobID)
			if err != nil {
				if storeerr.IsNotFound(err) {
					continue
				}
				return err
			}
			if j.Status != jobmodel.StatusQueued && j.Status != jobmodel.StatusRunning {
				continue
			}
			j.WorkerID = nil
			j.RetryCount++
			now := time.Now().UTC()
			if j.RetryCount >= j.RetryCap {
				j.Status = jobmodel.StatusFailed
				msg := "max retries exceeded due to worker failures"
				j.ErrorMessage = &msg
				j.CompletedAt = &now
			} else {
				j.Status = jobmodel.StatusPending
			}
			j.UpdatedAt = now
			if err := s.st.UpdateJob(ctx, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// sweepJobTimeouts implements _handle_failed_jobs.
func (s *Scheduler) sweepJobTimeouts(ctx context.Context) error {
	running, err := s.st.JobsByStatus(ctx, jobmodel.StatusRunning)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-jobTimeout)

	for _, j := range running {
		if j.StartedAt == nil || !j.StartedAt.Before(cutoff) {
			continue
		}
		now := time.Now().UTC()
		j.Status = jobmodel.StatusFailed
		msg := "job execution timeout"
		j.ErrorMessage = &msg
		j.CompletedAt = &now
		j.UpdatedAt = now
		workerID := j.WorkerID
		if err := s.st.UpdateJob(ctx, j); err != nil {
			return err
		}
		if workerID != nil {
			if err := s.st.Complete(ctx, j.ID, *workerID); err != nil && !storeerr.IsNotFound(err) {
				return err
			}
		}
	}
	return nil
}

// NextJobForWorker implements get_next_job_for_worker: the queued job
// assigned to this worker with the highest priority, earliest created.
func (s *Scheduler) NextJobForWorker(ctx context.Context, workerID string) (*jobmodel.Job, error) {
	worker, err := s.st.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	queued, err := s.st.JobsByStatus(ctx, jobmodel.StatusQueued)
	if err != nil {
		return nil, err
	}

	accepts := make(map[jobmodel.Target]bool, len(worker.TargetTypes))
	for _, t := range worker.TargetTypes {
		accepts[t] = true
	}

	var candidates []*jobmodel.Job
	for _, j := range queued {
		if j.WorkerID == nil || *j.WorkerID != workerID {
			continue
		}
		if !accepts[j.Payload.Target] {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortByPriorityThenCreatedAt(candidates,
		func(i int) int { return candidates[i].Payload.Priority.Weight() },
		func(i int) time.Time { return candidates[i].CreatedAt })
	return candidates[0], nil
}

// Retry implements retry_job.
func (s *Scheduler) Retry(ctx context.Context, jobID string) (*jobmodel.Job, error) {
	j, err := s.st.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != jobmodel.StatusFailed {
		return nil, storeerr.InvalidState("job %q is not failed", jobID)
	}
	if j.RetryCount >= j.RetryCap {
		return nil, storeerr.InvalidState("job %q has exhausted its retry cap", jobID)
	}

	j.Status = jobmodel.StatusPending
	j.WorkerID = nil
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = nil
	j.RetryCount++
	j.UpdatedAt = time.Now().UTC()
	if err := s.st.UpdateJob(ctx, j); err != nil {
		return nil, err
	}
	if _, err := s.QueueJob(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Cancel implements cancel_job.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) (*jobmodel.Job, error) {
	j, err := s.st.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		return nil, storeerr.InvalidState("job %q is already terminal", jobID)
	}

	workerID := j.WorkerID
	now := time.Now().UTC()
	j.Status = jobmodel.StatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	if err := s.st.UpdateJob(ctx, j); err != nil {
		return nil, err
	}
	if workerID != nil {
		if err := s.st.Complete(ctx, j.ID, *workerID); err != nil && !storeerr.IsNotFound(err) {
			return nil, err
		}
	}
	return j, nil
}

// Stats implements get_scheduler_stats: the store's queue counts plus
// the scheduler's own running configuration, per SPEC_FULL.md §10's
// ported /stats payload shape.
type Stats struct {
	store.QueueStats
	SchedulerRunning bool `json:"scheduler_running"`
	ScheduleInterval int  `json:"schedule_interval"`
	WorkerTimeout    int  `json:"worker_timeout"`
	MaxRetries       int  `json:"max_retries"`
}

func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	qs, err := s.st.QueueStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return Stats{
		QueueStats:       qs,
		SchedulerRunning: running,
		ScheduleInterval: int(s.cfg.ScheduleInterval.Seconds()),
		WorkerTimeout:    int(s.cfg.WorkerTimeout.Seconds()),
		MaxRetries:       s.cfg.MaxRetries,
	}, nil
}

func strPtr(s string) *string { return &s }
