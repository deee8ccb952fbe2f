package modes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"landrop/internal/landrop/ingest"
	"landrop/internal/landrop/metrics"
	"landrop/internal/landrop/pubsub"
	"landrop/internal/landrop/registry"
	"landrop/internal/landrop/server"
	"landrop/pkg/config"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

// App holds the shared state of one running instance. Everything is
// created here and injected; no component reaches for a global.
type App struct {
	Registry    *registry.Registry
	Broadcaster *pubsub.Broadcaster
	Ingest      *ingest.Service
	Metrics     *metrics.Recorder
	Handler     http.Handler

	cfg    *config.Config
	logger *logger.Logger
}

// NewApp wires the registry, broadcaster, ingest service and router for cfg
// and creates the initial destination directory.
func NewApp(cfg *config.Config, p platform.Platform, log *logger.Logger) (*App, error) {
	dir, err := cfg.UploadDir(p.Getwd)
	if err != nil {
		return nil, err
	}

	reg := registry.New(p, log)
	if err := reg.Set(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	rec := metrics.New()
	events := pubsub.New(cfg.Events.SubscriberBuffer, log, pubsub.WithMetrics(rec))
	svc := ingest.NewService(reg, events, p, ingest.Config{
		MaxFileSize: cfg.Upload.MaxFileSize,
		ChunkSize:   cfg.Upload.ChunkSize,
	}, log, ingest.WithMetrics(rec))

	opts := server.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = rec
	}

	return &App{
		Registry:    reg,
		Broadcaster: events,
		Ingest:      svc,
		Metrics:     rec,
		Handler:     server.New(reg, svc, events, p, log, opts).Handler(),
		cfg:         cfg,
		logger:      log.WithField("mode", "server"),
	}, nil
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// event streams and drains in-flight requests.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server started", "address", ln.Addr().String(), "dir", a.Registry.Get())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("stopping server...")

		// event streams never go idle on their own
		a.Broadcaster.Close()

		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown timed out, closing connections", "error", err)
			_ = srv.Close()
		}
		a.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// RunServer listens on the configured address and serves until SIGINT or
// SIGTERM.
func RunServer(cfg *config.Config) error {
	log := logger.Default()

	app, err := NewApp(cfg, platform.NewPlatform(), log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GetServerAddress(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx, ln)
}
