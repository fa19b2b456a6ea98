// Package localstore is the in-memory Store backend: three id->entity
// maps guarded by one mutex, matching job_store.py's JobStore (a
// single threading.RLock guarding self.jobs/groups/workers dicts) in
// the original service. Every getter returns a defensive deep copy so
// callers cannot mutate stored state by aliasing.
package localstore

import (
	"context"
	"sync"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/store/storeerr"
)

type activeGroupKey struct {
	orgID        string
	appVersionID string
}

// Store is the in-memory backend.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*jobmodel.Job
	groups  map[string]*jobmodel.Group
	workers map[string]*jobmodel.Worker

	// activeGroup caches (org, app_version) -> group id for groups in
	// a non-terminal status. Invalidated whenever a group's status
	// transitions, per spec.md §4.1's caching allowance.
	activeGroup map[activeGroupKey]string
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		jobs:        make(map[string]*jobmodel.Job),
		groups:      make(map[string]*jobmodel.Group),
		workers:     make(map[string]*jobmodel.Worker),
		activeGroup: make(map[activeGroupKey]string),
	}
}

var _ store.Store = (*Store)(nil)

// ---------------- Jobs ----------------

func (s *Store) AddJob(_ context.Context, job *jobmodel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*jobmodel.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, storeerr.NotFound("job %q", id)
	}
	return j.Clone(), nil
}

func (s *Store) UpdateJob(_ context.Context, job *jobmodel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return storeerr.NotFound("job %q", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return storeerr.NotFound("job %q", id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *Store) ListJobs(_ context.Context, filter store.JobFilter) ([]*jobmodel.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobmodel.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.OrgID != "" && j.Payload.OrgID != filter.OrgID {
			continue
		}
		if filter.HasStatus() && j.Status != filter.Status {
			continue
		}
		if filter.AppVersionID != "" && j.Payload.AppVersionID != filter.AppVersionID {
			continue
		}
		out = append(out, j.Clone())
	}
	return out, nil
}

func (s *Store) JobsByStatus(_ context.Context, status jobmodel.Status) ([]*jobmodel.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*jobmodel.Job
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j.Clone())
		}
	}
	return out, nil
}

func (s *Store) JobsByGroup(_ context.Context, groupID string) ([]*jobmodel.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	out := make([]*jobmodel.Job, 0, len(g.JobIDs))
	for _, id := range g.JobIDs {
		if j, ok := s.jobs[id]; ok {
			out = append(out, j.Clone())
		}
	}
	return out, nil
}

// ---------------- Groups ----------------

func (s *Store) AddGroup(_ context.Context, group *jobmodel.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group.Clone()
	s.reindexGroupLocked(group)
	return nil
}

func (s *Store) GetGroup(_ context.Context, id string) (*jobmodel.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, storeerr.NotFound("group %q", id)
	}
	return g.Clone(), nil
}

func (s *Store) UpdateGroup(_ context.Context, group *jobmodel.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group.ID]; !ok {
		return storeerr.NotFound("group %q", group.ID)
	}
	s.groups[group.ID] = group.Clone()
	s.reindexGroupLocked(group)
	return nil
}

func (s *Store) ListGroups(_ context.Context, filter store.GroupFilter) ([]*jobmodel.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobmodel.Group, 0, len(s.groups))
	for _, g := range s.groups {
		if filter.OrgID != "" && g.OrgID != filter.OrgID {
			continue
		}
		out = append(out, g.Clone())
	}
	return out, nil
}

func (s *Store) FindActiveGroupFor(_ context.Context, orgID, appVersionID string) (*jobmodel.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.activeGroup[activeGroupKey{orgID, appVersionID}]
	if !ok {
		return nil, nil
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

// reindexGroupLocked keeps activeGroup consistent with g's current
// status; must be called with mu held for writing.
func (s *Store) reindexGroupLocked(g *jobmodel.Group) {
	key := activeGroupKey{g.OrgID, g.AppVersionID}
	if g.Status.Terminal() {
		if s.activeGroup[key] == g.ID {
			delete(s.activeGroup, key)
		}
		return
	}
	s.activeGroup[key] = g.ID
}

// ---------------- Workers ----------------

func (s *Store) AddWorker(_ context.Context, worker *jobmodel.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[worker.ID] = worker.Clone()
	return nil
}

func (s *Store) GetWorker(_ context.Context, id string) (*jobmodel.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[id]
	if !ok {
		return nil, storeerr.NotFound("worker %q", id)
	}
	return w.Clone(), nil
}

func (s *Store) UpdateWorker(_ context.Context, worker *jobmodel.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workers[worker.ID]; !ok {
		return storeerr.NotFound("worker %q", worker.ID)
	}
	s.workers[worker.ID] = worker.Clone()
	return nil
}

func (s *Store) ListWorkers(_ context.Context, filter store.WorkerFilter) ([]*jobmodel.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobmodel.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		if filter.HasTarget() && !w.AcceptsTarget(filter.Target) {
			continue
		}
		if filter.HasStatus() && w.Status != filter.Status {
			continue
		}
		out = append(out, w.Clone())
	}
	return out, nil
}

func (s *Store) AvailableWorkers(_ context.Context, target jobmodel.Target) ([]*jobmodel.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*jobmodel.Worker
	for _, w := range s.workers {
		if w.AcceptsTarget(target) && w.Status == jobmodel.WorkerIdle && len(w.CurrentJobs) == 0 {
			out = append(out, w.Clone())
		}
	}
	return out, nil
}

// ---------------- Cross-entity atomics ----------------

func (s *Store) Assign(_ context.Context, jobID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	worker, ok := s.workers[workerID]
	if !ok {
		return storeerr.NotFound("worker %q", workerID)
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return storeerr.NotFound("job %q", jobID)
	}
	if worker.Status == jobmodel.WorkerOffline {
		return storeerr.InvalidState("cannot assign job %q to offline worker %q", jobID, workerID)
	}

	if !worker.HasJob(jobID) {
		worker.CurrentJobs = append(worker.CurrentJobs, jobID)
	}
	worker.Status = jobmodel.WorkerBusy

	job.WorkerID = strPtr(workerID)
	job.Status = jobmodel.StatusQueued
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Complete(_ context.Context, jobID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	worker, ok := s.workers[workerID]
	if !ok {
		return storeerr.NotFound("worker %q", workerID)
	}
	if !worker.HasJob(jobID) {
		return nil
	}
	remaining := worker.CurrentJobs[:0]
	for _, id := range worker.CurrentJobs {
		if id != jobID {
			remaining = append(remaining, id)
		}
	}
	worker.CurrentJobs = remaining
	if len(worker.CurrentJobs) == 0 && worker.Status != jobmodel.WorkerOffline {
		worker.Status = jobmodel.WorkerIdle
	}
	return nil
}

// ---------------- Derived ----------------

func (s *Store) QueueStats(_ context.Context) (store.QueueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := store.QueueStats{
		TotalJobs:    len(s.jobs),
		TotalGroups:  len(s.groups),
		TotalWorkers: len(s.workers),
		ByStatus:     map[string]int{},
	}
	for _, j := range s.jobs {
		stats.ByStatus[string(j.Status)]++
	}
	for _, w := range s.workers {
		switch w.Status {
		case jobmodel.WorkerIdle:
			stats.IdleWorkers++
		case jobmodel.WorkerBusy:
			stats.BusyWorkers++
		}
	}
	return stats, nil
}

// ---------------- Maintenance ----------------

func (s *Store) RetentionSweep(_ context.Context, horizon time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-horizon)
	var removed int
	for id, j := range s.jobs {
		if !j.Status.Terminal() || j.CompletedAt == nil {
			continue
		}
		if j.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func strPtr(s string) *string { return &s }
