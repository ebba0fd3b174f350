package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"AttackDash/internal/handler/ws"
	"AttackDash/internal/scheduler"
	"AttackDash/pkg/cache"
	"AttackDash/pkg/config"
	xhttp "AttackDash/pkg/http"
	pkgkafka "AttackDash/pkg/kafka"
	applogger "AttackDash/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	hub        *ws.Hub
	scheduler  *scheduler.Scheduler
	cache      cache.Service
	producer   *pkgkafka.Producer
}

// New creates a new App instance with all dependencies. producer may be nil
// when the log collector is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	sched *scheduler.Scheduler,
	c cache.Service,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		hub:        hub,
		scheduler:  sched,
		cache:      c,
		producer:   producer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done, then shuts
// down gracefully.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = a.hub.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		a.scheduler.Start(runCtx)
	}()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		cancel()
		wg.Wait()
		return err
	}
	a.log.Info("attackdash started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Duration("refresh_interval", a.cfg.Dashboard.RefreshInterval),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	a.scheduler.Stop()
	cancel()
	wg.Wait()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	// Detach the collector first so its final flush still has a producer.
	a.log.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
