package redisstore

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/qualgent/job-orchestrator/internal/jobmodel"
)

// Each entity is stored as a Redis hash of string fields. Composite
// fields (payload, metadata, result, id lists) are JSON-encoded into a
// single hash field, mirroring backend/redis_job_store.py's
// _serialize_job/_serialize_group's "json.dumps complex values, str()
// everything else" discipline. Timestamps round-trip through
// time.RFC3339Nano so deserialization recovers microsecond precision.

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := decodeTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeJobHash(j *jobmodel.Job) (map[string]string, error) {
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return nil, err
	}
	result := "null"
	if j.Result != nil {
		b, err := json.Marshal(j.Result)
		if err != nil {
			return nil, err
		}
		result = string(b)
	}
	h := map[string]string{
		"job_id":      j.ID,
		"payload":     string(payload),
		"status":      string(j.Status),
		"created_at":  encodeTime(j.CreatedAt),
		"updated_at":  encodeTime(j.UpdatedAt),
		"result":      result,
		"retry_count": strconv.Itoa(j.RetryCount),
		"retry_cap":   strconv.Itoa(j.RetryCap),
	}
	if j.StartedAt != nil {
		h["started_at"] = encodeTime(*j.StartedAt)
	}
	if j.CompletedAt != nil {
		h["completed_at"] = encodeTime(*j.CompletedAt)
	}
	if j.WorkerID != nil {
		h["worker_id"] = *j.WorkerID
	}
	if j.ErrorMessage != nil {
		h["error_message"] = *j.ErrorMessage
	}
	return h, nil
}

func decodeJobHash(h map[string]string) (*jobmodel.Job, error) {
	var payload jobmodel.JobPayload
	if err := json.Unmarshal([]byte(h["payload"]), &payload); err != nil {
		return nil, err
	}
	var result map[string]any
	if raw := h["result"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, err
		}
	}
	createdAt, err := decodeTime(h["created_at"])
	if err != nil {
		return nil, err
	}
	updatedAt, err := decodeTime(h["updated_at"])
	if err != nil {
		return nil, err
	}
	startedAt, err := decodeTimePtr(h["started_at"])
	if err != nil {
		return nil, err
	}
	completedAt, err := decodeTimePtr(h["completed_at"])
	if err != nil {
		return nil, err
	}
	retryCount, _ := strconv.Atoi(h["retry_count"])
	retryCap, _ := strconv.Atoi(h["retry_cap"])

	j := &jobmodel.Job{
		ID:          h["job_id"],
		Payload:     payload,
		Status:      jobmodel.Status(h["status"]),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Result:      result,
		RetryCount:  retryCount,
		RetryCap:    retryCap,
	}
	if v, ok := h["worker_id"]; ok && v != "" {
		j.WorkerID = strPtr(v)
	}
	if v, ok := h["error_message"]; ok && v != "" {
		j.ErrorMessage = strPtr(v)
	}
	return j, nil
}

func encodeGroupHash(g *jobmodel.Group) (map[string]string, error) {
	jobs, err := json.Marshal(g.JobIDs)
	if err != nil {
		return nil, err
	}
	h := map[string]string{
		"group_id":       g.ID,
		"org_id":         g.OrgID,
		"app_version_id": g.AppVersionID,
		"jobs":           string(jobs),
		"status":         string(g.Status),
		"created_at":     encodeTime(g.CreatedAt),
	}
	if g.WorkerID != nil {
		h["assigned_worker"] = *g.WorkerID
	}
	return h, nil
}

func decodeGroupHash(h map[string]string) (*jobmodel.Group, error) {
	var jobIDs []string
	if raw := h["jobs"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &jobIDs); err != nil {
			return nil, err
		}
	}
	createdAt, err := decodeTime(h["created_at"])
	if err != nil {
		return nil, err
	}
	g := &jobmodel.Group{
		ID:           h["group_id"],
		OrgID:        h["org_id"],
		AppVersionID: h["app_version_id"],
		JobIDs:       jobIDs,
		Status:       jobmodel.Status(h["status"]),
		CreatedAt:    createdAt,
	}
	if v, ok := h["assigned_worker"]; ok && v != "" {
		g.WorkerID = strPtr(v)
	}
	return g, nil
}

func encodeWorkerHash(w *jobmodel.Worker) (map[string]string, error) {
	targets, err := json.Marshal(w.TargetTypes)
	if err != nil {
		return nil, err
	}
	jobs, err := json.Marshal(w.CurrentJobs)
	if err != nil {
		return nil, err
	}
	metadata := "{}"
	if w.Metadata != nil {
		b, err := json.Marshal(w.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(b)
	}
	return map[string]string{
		"worker_id":      w.ID,
		"name":           w.Name,
		"target_types":   string(targets),
		"status":         string(w.Status),
		"current_jobs":   string(jobs),
		"last_heartbeat": encodeTime(w.LastHeartbeat),
		"metadata":       metadata,
	}, nil
}

func decodeWorkerHash(h map[string]string) (*jobmodel.Worker, error) {
	var targets []jobmodel.Target
	if raw := h["target_types"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &targets); err != nil {
			return nil, err
		}
	}
	var jobs []string
	if raw := h["current_jobs"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
			return nil, err
		}
	}
	var metadata map[string]any
	if raw := h["metadata"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, err
		}
	}
	lastHeartbeat, err := decodeTime(h["last_heartbeat"])
	if err != nil {
		return nil, err
	}
	return &jobmodel.Worker{
		ID:            h["worker_id"],
		Name:          h["name"],
		TargetTypes:   targets,
		Status:        jobmodel.WorkerStatus(h["status"]),
		CurrentJobs:   jobs,
		LastHeartbeat: lastHeartbeat,
		Metadata:      metadata,
	}, nil
}

func strPtr(s string) *string { return &s }
