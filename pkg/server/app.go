package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"SRZones/internal/usecase"
	"SRZones/pkg/config"
	xhttp "SRZones/pkg/http"
	applogger "SRZones/pkg/logger"
	"SRZones/pkg/queue"
)

// App encapsulates the zones API lifecycle: the HTTP server, the optional
// scheduled rebuild and the optional rebuild queue workers.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	rebuilder  *usecase.Rebuilder
	queue      *queue.RedisQueue
	cron       *cron.Cron
}

// New creates the App. rebuilder may be nil when no rebuild is scheduled and
// rq may be nil when the rebuild queue is disabled.
func New(cfg *config.Config, logger *applogger.Logger, httpServer *xhttp.Server, rebuilder *usecase.Rebuilder, rq *queue.RedisQueue) (*App, error) {
	if logger == nil {
		logger = applogger.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, httpServer: httpServer, rebuilder: rebuilder, queue: rq}
	if rebuilder != nil && cfg.Schedule.RebuildCron != "" {
		if err := a.schedule(cfg.Schedule.RebuildCron); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// schedule registers the rebuild under a six-field cron expression.
func (a *App) schedule(expr string) error {
	a.cron = cron.New(cron.WithSeconds())
	if _, err := a.cron.AddFunc(expr, a.rebuild); err != nil {
		return fmt.Errorf("register rebuild %q: %w", expr, err)
	}
	return nil
}

func (a *App) rebuild() {
	start := time.Now()
	a.logger.Info("scheduled rebuild started", applogger.Int("pairs", len(a.rebuilder.Pairs())))
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	if err := a.rebuilder.RunOnce(ctx); err != nil {
		a.logger.Error("scheduled rebuild finished with errors", applogger.Error(err))
		return
	}
	a.logger.Info("scheduled rebuild finished", applogger.Duration("duration_ms", time.Since(start)))
}

// Scheduled reports whether a rebuild is registered.
func (a *App) Scheduled() bool {
	return a.cron != nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.queue != nil {
		if err := a.queue.Start(context.Background()); err != nil {
			a.logger.Error("rebuild queue start error", applogger.Error(err))
			return err
		}
	}
	if a.cron != nil {
		a.cron.Start()
		a.logger.Info("rebuild scheduled", applogger.String("cron", a.cfg.Schedule.RebuildCron))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops the scheduler, waiting for a running rebuild, then the
// queue workers and the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.queue != nil {
		qctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		err := a.queue.Stop(qctx)
		cancel()
		if err != nil {
			a.logger.Error("rebuild queue stop error", applogger.Error(err))
		}
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}
