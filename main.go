// server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ViniZap4/noteful-server/auth"
	"github.com/ViniZap4/noteful-server/config"
	httphandlers "github.com/ViniZap4/noteful-server/http"
	"github.com/ViniZap4/noteful-server/store"
	"github.com/ViniZap4/noteful-server/ws"
)

func main() {
	cfg, err := config.Load(os.Getenv("NOTEFUL_CONFIG"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.Secret == config.DevSecret {
		logger.Warn().Msg("using the development JWT secret, set NOTEFUL_JWT_SECRET in production")
	}

	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer st.Close()

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.TokenExpiry())
	server := httphandlers.NewServer(st, issuer, hub, logger)
	app := server.App(cfg.HTTP.CORSOrigins)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.HTTP.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.HTTP.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (store.Store, error) {
	if cfg.URL == "" {
		logger.Warn().Msg("no database configured, using in-memory storage")
		return store.NewMemoryStore(), nil
	}

	logger.Info().Msg("using PostgreSQL storage")
	if err := store.Migrate(cfg.URL, logger); err != nil {
		return nil, err
	}
	return store.NewPostgresStore(ctx, cfg.URL, logger)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "noteful").Logger()
}
