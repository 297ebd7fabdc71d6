package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"homeservices-agent/internal/config"
	"homeservices-agent/internal/db"
	"homeservices-agent/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "migrate").Logger()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal().Err(err).Str("table", migrate.MigrationsTable).Msg("apply migrations")
	}

	logger.Info().Msg("migrations applied")
}
