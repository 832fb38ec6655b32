package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/aretw0/voiceflow/pkg/adapters/memory"
	"github.com/aretw0/voiceflow/pkg/adapters/redis"
	vfhttp "github.com/aretw0/voiceflow/pkg/adapters/http"
	"github.com/aretw0/voiceflow/pkg/observability"
	backend "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// storage selects where finished sessions are recorded and whether calls are
// serialized across processes. Without a Redis address everything stays in memory.
func storage(ctx context.Context, cfg *config.Config) ([]voiceflow.Option, func() error, error) {
	if cfg.Redis.Addr == "" {
		rec, err := wrapRecorder(cfg, memory.NewRecorder())
		if err != nil {
			return nil, nil, err
		}
		return []voiceflow.Option{voiceflow.WithRecorder(rec)}, func() error { return nil }, nil
	}

	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	rec, err := wrapRecorder(cfg, redis.NewFromClient(client, redis.WithTTL(cfg.Redis.RecordTTL)))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	opts := []voiceflow.Option{
		voiceflow.WithRecorder(rec),
		voiceflow.WithLocker(redis.NewLocker(client, "voiceflow:"), cfg.Redis.LockTTL),
	}
	return opts, client.Close, nil
}

// NewServer wires the engine, the event streams and the metrics into an HTTP handler.
// The returned cleanup releases the storage backend.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*voiceflow.Engine, http.Handler, func() error, error) {
	streams := vfhttp.NewStreamManager(logger)
	metrics := observability.NewMetrics("")

	opts, cleanup, err := storage(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts,
		voiceflow.WithDriver(streams),
		voiceflow.WithMetrics(metrics),
	)

	engine, err := createEngine(cfg, logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	handler := vfhttp.NewHandler(engine, streams,
		vfhttp.WithLogger(logger),
		vfhttp.WithToken(cfg.Server.Token),
		vfhttp.WithMetrics(metrics.Handler()),
		vfhttp.WithVersion(voiceflow.Version),
	)
	return engine, handler, cleanup, nil
}

// RunServe serves the HTTP API until ctx is cancelled.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	engine, handler, cleanup, err := NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "addr", srv.Addr, "flow", engine.Name, "version", voiceflow.Version)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if closeErr := engine.Close(shutdownCtx); closeErr != nil {
			logger.Warn("failed to close sessions", "error", closeErr)
		}
		logger.Info("server stopped")
		return err
	})
	return g.Wait()
}
