package jobmodel

import (
	"testing"
	"time"
)

func TestJobCloneIsDeep(t *testing.T) {
	started := time.Now()
	errMsg := "boom"
	workerID := "worker-1"
	j := &Job{
		ID: "job-1",
		Payload: JobPayload{
			OrgID:    "org-1",
			Metadata: map[string]any{"k": "v"},
		},
		Status:       StatusRunning,
		StartedAt:    &started,
		WorkerID:     &workerID,
		ErrorMessage: &errMsg,
		Result:       map[string]any{"passed": true},
	}

	clone := j.Clone()

	clone.Payload.Metadata["k"] = "mutated"
	*clone.StartedAt = started.Add(time.Hour)
	*clone.WorkerID = "worker-2"
	*clone.ErrorMessage = "mutated"
	clone.Result["passed"] = false

	if j.Payload.Metadata["k"] != "v" {
		t.Error("mutating clone's metadata affected original")
	}
	if !j.StartedAt.Equal(started) {
		t.Error("mutating clone's StartedAt affected original")
	}
	if *j.WorkerID != "worker-1" {
		t.Error("mutating clone's WorkerID affected original")
	}
	if *j.ErrorMessage != "boom" {
		t.Error("mutating clone's ErrorMessage affected original")
	}
	if j.Result["passed"] != true {
		t.Error("mutating clone's Result affected original")
	}
}

func TestJobCloneNil(t *testing.T) {
	var j *Job
	if j.Clone() != nil {
		t.Fatal("Clone of nil Job should be nil")
	}
}

func TestJobAtCap(t *testing.T) {
	j := &Job{RetryCount: 3, RetryCap: 3}
	if !j.AtCap() {
		t.Error("expected AtCap true when RetryCount == RetryCap")
	}
	j.RetryCount = 2
	if j.AtCap() {
		t.Error("expected AtCap false when RetryCount < RetryCap")
	}
}

func TestGroupCloneIsDeep(t *testing.T) {
	workerID := "worker-1"
	g := &Group{
		ID:       "group-1",
		JobIDs:   []string{"job-1", "job-2"},
		WorkerID: &workerID,
	}
	clone := g.Clone()
	clone.JobIDs[0] = "mutated"
	*clone.WorkerID = "worker-2"

	if g.JobIDs[0] != "job-1" {
		t.Error("mutating clone's JobIDs affected original")
	}
	if *g.WorkerID != "worker-1" {
		t.Error("mutating clone's WorkerID affected original")
	}
}

func TestGroupHasJob(t *testing.T) {
	g := &Group{JobIDs: []string{"job-1", "job-2"}}
	if !g.HasJob("job-1") {
		t.Error("expected HasJob true for member")
	}
	if g.HasJob("job-3") {
		t.Error("expected HasJob false for non-member")
	}
}

func TestWorkerCloneIsDeep(t *testing.T) {
	w := &Worker{
		ID:          "worker-1",
		TargetTypes: []Target{TargetEmulator},
		CurrentJobs: []string{"job-1"},
		Metadata:    map[string]any{"k": "v"},
	}
	clone := w.Clone()
	clone.TargetTypes[0] = TargetDevice
	clone.CurrentJobs[0] = "mutated"
	clone.Metadata["k"] = "mutated"

	if w.TargetTypes[0] != TargetEmulator {
		t.Error("mutating clone's TargetTypes affected original")
	}
	if w.CurrentJobs[0] != "job-1" {
		t.Error("mutating clone's CurrentJobs affected original")
	}
	if w.Metadata["k"] != "v" {
		t.Error("mutating clone's Metadata affected original")
	}
}

func TestWorkerAcceptsTarget(t *testing.T) {
	w := &Worker{TargetTypes: []Target{TargetEmulator, TargetCloud}}
	if !w.AcceptsTarget(TargetEmulator) {
		t.Error("expected AcceptsTarget true for emulator")
	}
	if w.AcceptsTarget(TargetDevice) {
		t.Error("expected AcceptsTarget false for device")
	}
}

func TestWorkerHasJob(t *testing.T) {
	w := &Worker{CurrentJobs: []string{"job-1"}}
	if !w.HasJob("job-1") {
		t.Error("expected HasJob true for held job")
	}
	if w.HasJob("job-2") {
		t.Error("expected HasJob false for unheld job")
	}
}
