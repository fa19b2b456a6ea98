// Package httpapi is the HTTP surface specified for compatibility in
// spec.md §6. It fronts the submission and polling front-ends and
// exposes read/list/stats endpoints directly against the store.
// Grounded on the teacher's internal/http/router.go wiring shape and
// backend/app.py's Blueprint grouping (jobs_bp, workers_bp).
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qualgent/job-orchestrator/internal/observability"
	"github.com/qualgent/job-orchestrator/internal/platform/logger"
	"github.com/qualgent/job-orchestrator/internal/polling"
	"github.com/qualgent/job-orchestrator/internal/scheduler"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/submission"
	"github.com/qualgent/job-orchestrator/internal/transport/http/middleware"
)

// Deps bundles everything the router needs to build handlers.
type Deps struct {
	Store       store.Store
	Scheduler   *scheduler.Scheduler
	Submission  *submission.Service
	Polling     *polling.Service
	Log         *logger.Logger
	Metrics     *observability.Metrics
	BackendName string // "local" or "redis", surfaced on GET /health
	CORSOrigins []string
	StartedAt   time.Time
}

const serviceVersion = "1.0.0"

// NewRouter builds the gin engine with spec.md §6's exact route table,
// grouped the way backend/app.py groups jobs_bp/workers_bp.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Metrics(d.Metrics))

	h := &handlers{d: d}

	r.GET("/health", h.health)
	r.GET("/groups", h.listGroups)
	r.GET("/stats", h.stats)

	jobs := r.Group("/jobs")
	{
		jobs.POST("", h.submitJob)
		jobs.GET("", h.listJobs)
		jobs.GET("/:id", h.getJob)
		jobs.PUT("/:id", h.updateJob)
	}

	workers := r.Group("/workers")
	{
		workers.POST("", h.registerWorker)
		workers.GET("", h.listWorkers)
		workers.POST("/:id/heartbeat", h.heartbeat)
	}

	return r
}
