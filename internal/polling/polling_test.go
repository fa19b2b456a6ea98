package polling

import (
	"context"
	"testing"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/platform/logger"
	"github.com/qualgent/job-orchestrator/internal/scheduler"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/store/localstore"
	"github.com/qualgent/job-orchestrator/internal/submission/submiterr"
)

func newService(t *testing.T) (*Service, store.Store, *scheduler.Scheduler) {
	t.Helper()
	st := localstore.New()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	sched := scheduler.New(st, scheduler.DefaultConfig(), log, nil)
	return New(st, sched), st, sched
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Register(context.Background(), RegisterRequest{TargetTypes: []jobmodel.Target{jobmodel.TargetEmulator}}); !submiterr.IsValidation(err) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "w1"}); !submiterr.IsValidation(err) {
		t.Errorf("expected validation error for missing target_types, got %v", err)
	}
}

func TestRegisterStoresIdleWorker(t *testing.T) {
	svc, _, _ := newService(t)
	w, err := svc.Register(context.Background(), RegisterRequest{Name: "w1", TargetTypes: []jobmodel.Target{jobmodel.TargetEmulator}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if w.Status != jobmodel.WorkerIdle {
		t.Errorf("expected freshly-registered worker idle, got %q", w.Status)
	}
}

func TestHeartbeatUnknownWorker(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Heartbeat(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown worker id")
	}
}

func TestHeartbeatReturnsAssignedJob(t *testing.T) {
	svc, st, sched := newService(t)
	ctx := context.Background()

	w, err := svc.Register(ctx, RegisterRequest{Name: "w1", TargetTypes: []jobmodel.Target{jobmodel.TargetEmulator}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	job := &jobmodel.Job{
		ID: "job-1",
		Payload: jobmodel.JobPayload{
			OrgID: "org-1", AppVersionID: "v1", TestPath: "t", Target: jobmodel.TargetEmulator, Priority: jobmodel.PriorityNormal,
		},
		Status:   jobmodel.StatusPending,
		RetryCap: 3,
	}
	if err := st.AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if _, err := sched.QueueJob(ctx, job); err != nil {
		t.Fatalf("QueueJob: %v", err)
	}
	if err := st.Assign(ctx, job.ID, w.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	hb, err := svc.Heartbeat(ctx, w.ID)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.Status != "ok" {
		t.Errorf("expected status ok, got %q", hb.Status)
	}
	if hb.NextJob == nil || hb.NextJob.ID != job.ID {
		t.Fatalf("expected NextJob %q, got %v", job.ID, hb.NextJob)
	}
}

func TestHeartbeatDoesNotReviveOfflineWorker(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	w, err := svc.Register(ctx, RegisterRequest{Name: "w1", TargetTypes: []jobmodel.Target{jobmodel.TargetEmulator}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	w.Status = jobmodel.WorkerOffline
	if err := st.UpdateWorker(ctx, w); err != nil {
		t.Fatalf("UpdateWorker: %v", err)
	}

	if _, err := svc.Heartbeat(ctx, w.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	got, _ := st.GetWorker(ctx, w.ID)
	if got.Status != jobmodel.WorkerOffline {
		t.Errorf("expected heartbeat to leave worker status untouched, got %q", got.Status)
	}
}
