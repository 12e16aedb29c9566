package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MacroPulse/internal/domain/repository"
	"MacroPulse/internal/usecase"
	"MacroPulse/pkg/cache"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	applogger "MacroPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: an initial consolidation
// run at startup, the HTTP surface, and graceful teardown of all clients.
type App struct {
	cfg         *config.Config
	uc          *usecase.ConsolidationUseCase
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	results     repository.ResultStore
	alerts      repository.AlertPublisher
	cache       cache.Service
	l           *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	uc *usecase.ConsolidationUseCase,
	handler xhttp.Handler,
	results repository.ResultStore,
	alerts repository.AlertPublisher,
	c cache.Service,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:         cfg,
		uc:          uc,
		httpHandler: handler,
		results:     results,
		alerts:      alerts,
		cache:       c,
		l:           l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	)

	// Initial run so the API serves a consolidated table immediately.
	go func() {
		run, err := a.uc.Run(ctx)
		if err != nil {
			a.l.Error("initial consolidation run failed", applogger.Error(err))
			return
		}
		a.l.Info("initial consolidation run complete",
			applogger.Int("periods", len(run.Records)),
			applogger.Int("anomalous", len(run.AnomalousRecords())),
		)
	}()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			a.l.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			a.l.Warn("result store close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
