package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homeservices-agent/internal/backend"
	"homeservices-agent/internal/config"
	"homeservices-agent/internal/db"
	"homeservices-agent/internal/httpserver"
	"homeservices-agent/internal/migrate"
	"homeservices-agent/internal/repository/kv"
	cartsvc "homeservices-agent/internal/service/cart"
	"homeservices-agent/internal/service/session"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	ctx := context.Background()
	repo, closeRepo, err := openKV(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.KVBackend).Msg("open kv storage")
	}
	defer closeRepo()

	sessionStore := session.New(repo, logger)
	if sessionStore.LoadAuth(ctx) {
		logger.Info().Msg("restored persisted session")
	}

	cartStore := cartsvc.New(cartsvc.Pricing{
		ConvenienceFeeCents: cfg.ConvenienceFeeCents,
		TaxRateBPS:          cfg.TaxRateBPS,
	})
	backendClient := backend.NewClient(&http.Client{Timeout: cfg.BackendTimeout}, cfg.BackendURL, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Session:     sessionStore,
		Cart:        cartStore,
		Backend:     backendClient,
		Storage:     repo,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("app", "agent").Logger()
}

// openKV returns the configured storage and a func releasing it.
func openKV(ctx context.Context, cfg config.Config, logger zerolog.Logger) (kv.Repository, func(), error) {
	switch cfg.KVBackend {
	case config.BackendMemory:
		logger.Warn().Msg("kv backend is memory; sessions will not survive a restart")
		return kv.NewMemory(), func() {}, nil

	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return kv.NewPostgres(pool), pool.Close, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return kv.NewRedis(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
}
