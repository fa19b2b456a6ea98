package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
	"github.com/qualgent/job-orchestrator/internal/polling"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/submission"
	"github.com/qualgent/job-orchestrator/internal/transport/http/httperr"
	"github.com/qualgent/job-orchestrator/internal/transport/http/response"
)

type handlers struct {
	d Deps
}

// health implements GET /health.
func (h *handlers) health(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(jobmodel.WireTime),
		"version":   serviceVersion,
		"storage":   h.d.BackendName,
	})
}

type submitJobRequest struct {
	OrgID        string             `json:"org_id"`
	AppVersionID string             `json:"app_version_id"`
	TestPath     string             `json:"test_path"`
	Target       *jobmodel.Target   `json:"target"`
	Priority     *jobmodel.Priority `json:"priority"`
	Metadata     map[string]any     `json:"metadata"`
}

// submitJob implements POST /jobs.
func (h *handlers) submitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}

	sreq := submission.Request{
		OrgID:        req.OrgID,
		AppVersionID: req.AppVersionID,
		TestPath:     req.TestPath,
		Metadata:     req.Metadata,
	}
	if req.Target != nil {
		sreq.Target = *req.Target
	}
	if req.Priority != nil {
		sreq.Priority = *req.Priority
	}

	job, err := h.d.Submission.Submit(c.Request.Context(), sreq)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"job_id": job.ID, "status": job.Status})
}

// getJob implements GET /jobs/<id>.
func (h *handlers) getJob(c *gin.Context) {
	job, err := h.d.Store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, job)
}

// listJobs implements GET /jobs.
func (h *handlers) listJobs(c *gin.Context) {
	filter := store.JobFilter{
		OrgID:        c.Query("org_id"),
		AppVersionID: c.Query("app_version_id"),
	}
	if raw := c.Query("status"); raw != "" {
		st, err := jobmodel.ParseStatus(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation_error", err)
			return
		}
		filter = filter.WithStatus(st)
	}
	jobs, err := h.d.Store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs, "count": len(jobs)})
}

type updateJobRequest struct {
	Status       *string        `json:"status"`
	WorkerID     *string        `json:"worker_id"`
	Result       map[string]any `json:"result"`
	ErrorMessage *string        `json:"error_message"`
}

// updateJob implements PUT /jobs/<id>: a worker-driven status/result
// report. A transition to "cancelled" or a "pending" bounce from
// "failed" routes through the scheduler's Cancel/Retry so their
// invariants (terminal-state rejection, retry-cap enforcement) apply;
// any other field combination is a direct worker status report.
func (h *handlers) updateJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}

	if req.Status != nil {
		newStatus, err := jobmodel.ParseStatus(*req.Status)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation_error", err)
			return
		}
		switch newStatus {
		case jobmodel.StatusCancelled:
			job, err := h.d.Scheduler.Cancel(ctx, id)
			if err != nil {
				httperr.Write(c, err)
				return
			}
			response.RespondOK(c, job)
			return
		case jobmodel.StatusPending:
			current, err := h.d.Store.GetJob(ctx, id)
			if err != nil {
				httperr.Write(c, err)
				return
			}
			if current.Status == jobmodel.StatusFailed {
				job, err := h.d.Scheduler.Retry(ctx, id)
				if err != nil {
					httperr.Write(c, err)
					return
				}
				response.RespondOK(c, job)
				return
			}
		}
	}

	job, err := h.d.Store.GetJob(ctx, id)
	if err != nil {
		httperr.Write(c, err)
		return
	}

	now := time.Now().UTC()
	if req.Status != nil {
		newStatus, _ := jobmodel.ParseStatus(*req.Status)
		if newStatus == jobmodel.StatusRunning && job.StartedAt == nil {
			job.StartedAt = &now
		}
		if (newStatus == jobmodel.StatusCompleted || newStatus == jobmodel.StatusFailed) && job.CompletedAt == nil {
			job.CompletedAt = &now
		}
		job.Status = newStatus
	}
	if req.WorkerID != nil {
		job.WorkerID = req.WorkerID
	}
	if req.Result != nil {
		job.Result = req.Result
	}
	if req.ErrorMessage != nil {
		job.ErrorMessage = req.ErrorMessage
	}
	job.UpdatedAt = now

	if err := h.d.Store.UpdateJob(ctx, job); err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, job)
}

// listGroups implements GET /groups.
func (h *handlers) listGroups(c *gin.Context) {
	groups, err := h.d.Store.ListGroups(c.Request.Context(), store.GroupFilter{OrgID: c.Query("org_id")})
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, gin.H{"groups": groups, "count": len(groups)})
}

type registerWorkerRequest struct {
	Name        string            `json:"name"`
	TargetTypes []jobmodel.Target `json:"target_types"`
	Metadata    map[string]any    `json:"metadata"`
}

// registerWorker implements POST /workers.
func (h *handlers) registerWorker(c *gin.Context) {
	var req registerWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	worker, err := h.d.Polling.Register(c.Request.Context(), polling.RegisterRequest{
		Name:        req.Name,
		TargetTypes: req.TargetTypes,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"worker_id": worker.ID})
}

// listWorkers implements GET /workers.
func (h *handlers) listWorkers(c *gin.Context) {
	workers, err := h.d.Store.ListWorkers(c.Request.Context(), store.WorkerFilter{})
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workers": workers, "count": len(workers)})
}

// heartbeat implements POST /workers/<id>/heartbeat.
func (h *handlers) heartbeat(c *gin.Context) {
	hb, err := h.d.Polling.Heartbeat(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	body := gin.H{"status": hb.Status}
	if hb.NextJob != nil {
		body["next_job"] = hb.NextJob
	}
	response.RespondOK(c, body)
}

// stats implements GET /stats.
func (h *handlers) stats(c *gin.Context) {
	st, err := h.d.Scheduler.Stats(c.Request.Context())
	if err != nil {
		httperr.Write(c, err)
		return
	}
	response.RespondOK(c, st)
}
