package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockSense/internal/handler/ws"
	"StockSense/pkg/config"
	xhttp "StockSense/pkg/http"
	pkgkafka "StockSense/pkg/kafka"
	applogger "StockSense/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	hub        *ws.Hub
	consumer   *pkgkafka.Consumer
	runs       pkgkafka.MessageHandler
}

// New creates a new App. consumer may be nil when Kafka is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	runs pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		hub:        hub,
		consumer:   consumer,
		runs:       runs,
	}
}

// Run starts the application and blocks until interrupted or the HTTP
// listener fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go a.hub.Run(hubCtx)

	// Start consumer if configured
	if a.consumer != nil && a.runs != nil {
		a.consumer.RegisterHandler(a.runs)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.runs.Topic()))
	}

	errCh := a.httpServer.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			runErr = err
		}
	}

	a.shutdown()
	return runErr
}

// shutdown stops intake first (HTTP, consumer) and then the run stream.
func (a *App) shutdown() {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
