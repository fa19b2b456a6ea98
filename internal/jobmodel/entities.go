package jobmodel

import "time"

// WireTime is the microsecond-precision RFC3339 layout, matching
// Python's datetime.isoformat() output the original service produces
// and consumes. It formats the GET /health timestamp. The time.Time
// fields of Job, Group and Worker are JSON-encoded with time.Time's
// own RFC3339Nano layout, which keeps up to nanosecond digits.
const WireTime = "2006-01-02T15:04:05.999999Z07:00"

// JobPayload is the submission payload for a single test job.
type JobPayload struct {
	OrgID        string         `json:"org_id"`
	AppVersionID string         `json:"app_version_id"`
	TestPath     string         `json:"test_path"`
	Target       Target         `json:"target"`
	Priority     Priority       `json:"priority"`
	Metadata     map[string]any `json:"metadata"`
}

// Clone returns a defensive deep copy of p.
func (p JobPayload) Clone() JobPayload {
	out := p
	out.Metadata = cloneMap(p.Metadata)
	return out
}

// Job is a single scheduled test execution.
type Job struct {
	ID           string         `json:"job_id"`
	Payload      JobPayload     `json:"payload"`
	Status       Status         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	WorkerID     *string        `json:"worker_id,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
	RetryCap     int            `json:"retry_cap"`
}

// Clone returns a defensive deep copy of j so callers cannot mutate
// stored state by aliasing.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Payload = j.Payload.Clone()
	out.Result = cloneMap(j.Result)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.WorkerID != nil {
		id := *j.WorkerID
		out.WorkerID = &id
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		out.ErrorMessage = &msg
	}
	return &out
}

// AtCap reports whether j has exhausted its retry budget.
func (j *Job) AtCap() bool {
	return j.RetryCount >= j.RetryCap
}

// Group batches jobs that share an (org, app-version) tuple so a
// worker installs the application once and runs every member test.
type Group struct {
	ID           string    `json:"group_id"`
	OrgID        string    `json:"org_id"`
	AppVersionID string    `json:"app_version_id"`
	JobIDs       []string  `json:"jobs"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	WorkerID     *string   `json:"assigned_worker,omitempty"`
}

// Clone returns a defensive deep copy of g.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.JobIDs = append([]string(nil), g.JobIDs...)
	if g.WorkerID != nil {
		id := *g.WorkerID
		out.WorkerID = &id
	}
	return &out
}

// HasJob reports whether jobID is already a member of g.
func (g *Group) HasJob(jobID string) bool {
	for _, id := range g.JobIDs {
		if id == jobID {
			return true
		}
	}
	return false
}

// Worker is a registered test-execution agent.
type Worker struct {
	ID            string         `json:"worker_id"`
	Name          string         `json:"name"`
	TargetTypes   []Target       `json:"target_types"`
	Status        WorkerStatus   `json:"status"`
	CurrentJobs   []string       `json:"current_jobs"`
	LastHeartbeat time.Time      `json:"last_heartbeat"`
	Metadata      map[string]any `json:"metadata"`
}

// Clone returns a defensive deep copy of w.
func (w *Worker) Clone() *Worker {
	if w == nil {
		return nil
	}
	out := *w
	out.TargetTypes = append([]Target(nil), w.TargetTypes...)
	out.CurrentJobs = append([]string(nil), w.CurrentJobs...)
	out.Metadata = cloneMap(w.Metadata)
	return &out
}

// AcceptsTarget reports whether w is registered to run target t.
func (w *Worker) AcceptsTarget(t Target) bool {
	for _, accepted := range w.TargetTypes {
		if accepted == t {
			return true
		}
	}
	return false
}

// HasJob reports whether jobID is currently held by w.
func (w *Worker) HasJob(jobID string) bool {
	for _, id := range w.CurrentJobs {
		if id == jobID {
			return true
		}
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
