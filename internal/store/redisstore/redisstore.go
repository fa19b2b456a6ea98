// Package redisstore is the remote key-value Store backend. Each
// entity is a hash under a prefixed key (job:<id>, group:<id>,
// worker:<id>); a Redis set per entity kind enumerates live ids.
// Multi-key mutations are submitted as a single pipelined transaction
// so the server applies them without interleaving from this client.
//
// Grounded on backend/redis_job_store.py's RedisJobStore (key layout
// and serialize/deserialize helpers) in the original Python service,
// using the same go-redis/v9 client the teacher repo already depends
// on for its SSE/pub-sub bus (internal/realtime/bus/redis_bus.go).
package redisstore

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/store/storeerr"
)

const (
	jobPrefix    = "job:"
	groupPrefix  = "group:"
	workerPrefix = "worker:"

	jobSet    = "jobs"
	groupSet  = "groups"
	workerSet = "workers"
)

// Store is the Redis-backed backend.
type Store struct {
	rdb *goredis.Client
}

// New dials url and verifies connectivity before returning, matching
// the original's "Test connection" ping-at-construction behavior.
func New(ctx context.Context, url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, storeerr.Unavailable("parse redis url: %v", err)
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, storeerr.Unavailable("redis ping: %v", err)
	}
	return &Store{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.rdb.Close() }

var _ store.Store = (*Store)(nil)

func wrapErr(err error) error {
	if err == nil || errors.Is(err, goredis.Nil) {
		return err
	}
	return storeerr.Unavailable("%v", err)
}

// ---------------- Jobs ----------------

func (s *Store) AddJob(ctx context.Context, job *jobmodel.Job) error {
	h, err := encodeJobHash(job)
	if err != nil {
		return err
	}
	key := jobPrefix + job.ID
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, h)
		pipe.SAdd(ctx, jobSet, job.ID)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) GetJob(ctx context.Context, id string) (*jobmodel.Job, error) {
	h, err := s.rdb.HGetAll(ctx, jobPrefix+id).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(h) == 0 {
		return nil, storeerr.NotFound("job %q", id)
	}
	return decodeJobHash(h)
}

func (s *Store) UpdateJob(ctx context.Context, job *jobmodel.Job) error {
	exists, err := s.rdb.SIsMember(ctx, jobSet, job.ID).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !exists {
		return storeerr.NotFound("job %q", job.ID)
	}
	h, err := encodeJobHash(job)
	if err != nil {
		return err
	}
	// Replace the whole hash so optional fields cleared on job (worker_id,
	// started_at, completed_at, error_message) do not keep stale values.
	key := jobPrefix + job.ID
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, h)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	exists, err := s.rdb.SIsMember(ctx, jobSet, id).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !exists {
		return storeerr.NotFound("job %q", id)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, jobPrefix+id)
		pipe.SRem(ctx, jobSet, id)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) allJobIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, jobSet).Result()
	return ids, wrapErr(err)
}

func (s *Store) ListJobs(ctx context.Context, filter store.JobFilter) ([]*jobmodel.Job, error) {
	ids, err := s.allJobIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*jobmodel.Job, 0, len(ids))
	for _, id := range ids {
		j, err := s.GetJob(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.OrgID != "" && j.Payload.OrgID != filter.OrgID {
			continue
		}
		if filter.HasStatus() && j.Status != filter.Status {
			continue
		}
		if filter.AppVersionID != "" && j.Payload.AppVersionID != filter.AppVersionID {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *Store) JobsByStatus(ctx context.Context, status jobmodel.Status) ([]*jobmodel.Job, error) {
	return s.ListJobs(ctx, store.JobFilter{}.WithStatus(status))
}

func (s *Store) JobsByGroup(ctx context.Context, groupID string) ([]*jobmodel.Job, error) {
	g, err := s.GetGroup(ctx, groupID)
	if errors.Is(err, storeerr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*jobmodel.Job, 0, len(g.JobIDs))
	for _, id := range g.JobIDs {
		j, err := s.GetJob(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// ---------------- Groups ----------------

func (s *Store) AddGroup(ctx context.Context, group *jobmodel.Group) error {
	h, err := encodeGroupHash(group)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, groupPrefix+group.ID, h)
		pipe.SAdd(ctx, groupSet, group.ID)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) GetGroup(ctx context.Context, id string) (*jobmodel.Group, error) {
	h, err := s.rdb.HGetAll(ctx, groupPrefix+id).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(h) == 0 {
		return nil, storeerr.NotFound("group %q", id)
	}
	return decodeGroupHash(h)
}

func (s *Store) UpdateGroup(ctx context.Context, group *jobmodel.Group) error {
	exists, err := s.rdb.SIsMember(ctx, groupSet, group.ID).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !exists {
		return storeerr.NotFound("group %q", group.ID)
	}
	h, err := encodeGroupHash(group)
	if err != nil {
		return err
	}
	return wrapErr(s.rdb.HSet(ctx, groupPrefix+group.ID, h).Err())
}

func (s *Store) ListGroups(ctx context.Context, filter store.GroupFilter) ([]*jobmodel.Group, error) {
	ids, err := s.rdb.SMembers(ctx, groupSet).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*jobmodel.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.OrgID != "" && g.OrgID != filter.OrgID {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) FindActiveGroupFor(ctx context.Context, orgID, appVersionID string) (*jobmodel.Group, error) {
	ids, err := s.rdb.SMembers(ctx, groupSet).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if g.OrgID == orgID && g.AppVersionID == appVersionID && !g.Status.Terminal() {
			return g, nil
		}
	}
	return nil, nil
}

// ---------------- Workers ----------------

func (s *Store) AddWorker(ctx context.Context, worker *jobmodel.Worker) error {
	h, err := encodeWorkerHash(worker)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, workerPrefix+worker.ID, h)
		pipe.SAdd(ctx, workerSet, worker.ID)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) GetWorker(ctx context.Context, id string) (*jobmodel.Worker, error) {
	h, err := s.rdb.HGetAll(ctx, workerPrefix+id).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(h) == 0 {
		return nil, storeerr.NotFound("worker %q", id)
	}
	return decodeWorkerHash(h)
}

func (s *Store) UpdateWorker(ctx context.Context, worker *jobmodel.Worker) error {
	exists, err := s.rdb.SIsMember(ctx, workerSet, worker.ID).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !exists {
		return storeerr.NotFound("worker %q", worker.ID)
	}
	h, err := encodeWorkerHash(worker)
	if err != nil {
		return err
	}
	return wrapErr(s.rdb.HSet(ctx, workerPrefix+worker.ID, h).Err())
}

func (s *Store) ListWorkers(ctx context.Context, filter store.WorkerFilter) ([]*jobmodel.Worker, error) {
	ids, err := s.rdb.SMembers(ctx, workerSet).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*jobmodel.Worker, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetWorker(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.HasTarget() && !w.AcceptsTarget(filter.Target) {
			continue
		}
		if filter.HasStatus() && w.Status != filter.Status {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) AvailableWorkers(ctx context.Context, target jobmodel.Target) ([]*jobmodel.Worker, error) {
	ids, err := s.rdb.SMembers(ctx, workerSet).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	var out []*jobmodel.Worker
	for _, id := range ids {
		w, err := s.GetWorker(ctx, id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if w.AcceptsTarget(target) && w.Status == jobmodel.WorkerIdle && len(w.CurrentJobs) == 0 {
			out = append(out, w)
		}
	}
	return out, nil
}

// ---------------- Cross-entity atomics ----------------

func (s *Store) Assign(ctx context.Context, jobID, workerID string) error {
	worker, err := s.GetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if worker.Status == jobmodel.WorkerOffline {
		return storeerr.InvalidState("cannot assign job %q to offline worker %q", jobID, workerID)
	}

	if !worker.HasJob(jobID) {
		worker.CurrentJobs = append(worker.CurrentJobs, jobID)
	}
	worker.Status = jobmodel.WorkerBusy

	workerID2 := workerID
	job.WorkerID = &workerID2
	job.Status = jobmodel.StatusQueued
	job.UpdatedAt = time.Now().UTC()

	workerHash, err := encodeWorkerHash(worker)
	if err != nil {
		return err
	}
	jobHash, err := encodeJobHash(job)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, workerPrefix+worker.ID, workerHash)
		pipe.HSet(ctx, jobPrefix+job.ID, jobHash)
		return nil
	})
	return wrapErr(err)
}

func (s *Store) Complete(ctx context.Context, jobID, workerID string) error {
	worker, err := s.GetWorker(ctx, workerID)
	if err != nil {
		return err
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
	h, err := encodeWorkerHash(worker)
	if err != nil {
		return err
	}
	return wrapErr(s.rdb.HSet(ctx, workerPrefix+worker.ID, h).Err())
}

// ---------------- Derived ----------------

func (s *Store) QueueStats(ctx context.Context) (store.QueueStats, error) {
	jobs, err := s.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		return store.QueueStats{}, err
	}
	workers, err := s.ListWorkers(ctx, store.WorkerFilter{})
	if err != nil {
		return store.QueueStats{}, err
	}
	groupIDs, err := s.rdb.SMembers(ctx, groupSet).Result()
	if err != nil {
		return store.QueueStats{}, wrapErr(err)
	}

	stats := store.QueueStats{
		TotalJobs:    len(jobs),
		TotalGroups:  len(groupIDs),
		TotalWorkers: len(workers),
		ByStatus:     map[string]int{},
	}
	for _, j := range jobs {
		stats.ByStatus[string(j.Status)]++
	}
	for _, w := range workers {
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

func (s *Store) RetentionSweep(ctx context.Context, horizon time.Duration) (int, error) {
	jobs, err := s.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-horizon)
	var removed int
	for _, j := range jobs {
		if !j.Status.Terminal() || j.CompletedAt == nil {
			continue
		}
		if j.CompletedAt.Before(cutoff) {
			if err := s.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, storeerr.ErrNotFound) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
