// Package app is the composition root: it builds the logger, config,
// store, scheduler, front-end services, and HTTP router, and exposes
// Start/Run/Close for cmd/server. Grounded on the teacher's
// internal/app/app.go's New() wiring order.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qualgent/job-orchestrator/internal/config"
	"github.com/qualgent/job-orchestrator/internal/observability"
	"github.com/qualgent/job-orchestrator/internal/platform/logger"
	"github.com/qualgent/job-orchestrator/internal/polling"
	"github.com/qualgent/job-orchestrator/internal/scheduler"
	"github.com/qualgent/job-orchestrator/internal/store"
	"github.com/qualgent/job-orchestrator/internal/submission"
	httpapi "github.com/qualgent/job-orchestrator/internal/transport/http"
)

// App bundles every wired component the entrypoint needs.
type App struct {
	Log    *logger.Logger
	Cfg    config.Config
	Store  store.Store
	Sched  *scheduler.Scheduler
	Router *gin.Engine

	httpServer *http.Server
	closeStore func() error
	cancel     context.CancelFunc
}

// New builds the app: config -> logger -> store (local or redis, with
// startup fallback-to-local on connect failure, per spec.md §7) ->
// scheduler -> submission/polling services -> router.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, backendName, closeStore := buildStore(ctx, cfg, log)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.New(prometheus.DefaultRegisterer)
	}

	schedCfg := scheduler.Config{
		ScheduleInterval: cfg.ScheduleInterval,
		WorkerTimeout:    cfg.WorkerTimeout,
		MaxRetries:       cfg.MaxRetries,
	}
	sched := scheduler.New(st, schedCfg, log, metrics)

	submissionSvc := submission.New(st, sched, cfg.MaxRetries)
	pollingSvc := polling.New(st, sched)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:       st,
		Scheduler:   sched,
		Submission:  submissionSvc,
		Polling:     pollingSvc,
		Log:         log,
		Metrics:     metrics,
		BackendName: backendName,
		CORSOrigins: cfg.CORSOrigins,
	})
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return &App{
		Log:        log,
		Cfg:        cfg,
		Store:      st,
		Sched:      sched,
		Router:     router,
		closeStore: closeStore,
	}, nil
}

// Start launches the scheduler's background sweep loop and the
// retention-sweep ticker, both cancelled together by Close.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.Sched.Run(ctx)
	go a.runRetentionSweep(ctx)
}

func (a *App) runRetentionSweep(ctx context.Context) {
	ticker := time.NewTicker(a.Cfg.RetentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.Store.RetentionSweep(ctx, a.Cfg.RetentionHours)
			if err != nil {
				a.Log.Error("retention sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				a.Log.Info("retention sweep removed terminal jobs", "count", removed)
			}
		}
	}
}

// Run serves the HTTP router on addr until Shutdown is called.
func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.httpServer = &http.Server{Addr: addr, Handler: a.Router}
	err := a.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight HTTP requests.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(ctx)
}

// Close stops the background loops and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.closeStore != nil {
		_ = a.closeStore()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
