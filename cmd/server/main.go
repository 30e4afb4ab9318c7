package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bluff-table/bluff-table/internal/api/http"
	"github.com/bluff-table/bluff-table/internal/application/bot"
	"github.com/bluff-table/bluff-table/internal/application/engine"
	"github.com/bluff-table/bluff-table/internal/config"
	"github.com/bluff-table/bluff-table/internal/infrastructure/memory"
	"github.com/bluff-table/bluff-table/internal/infrastructure/postgres"
	"github.com/bluff-table/bluff-table/internal/infrastructure/sse"
	"github.com/bluff-table/bluff-table/internal/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := zerolog.New(os.Stdout).Level(cfg.Level()).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// infrastructure
	store := memory.NewStore()
	hub := sse.NewHub(logger)

	engineOpts := []engine.Option{engine.WithRetention(cfg.SessionRetention)}
	serverOpts := []httpapi.ServerOption{
		httpapi.WithSessionDefaults(cfg.SessionDefaults()),
		httpapi.WithSocketRate(cfg.WSRateLimit, cfg.WSRateBurst),
	}
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool, migrations.FS); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		results := postgres.NewResultRepository(pool)
		engineOpts = append(engineOpts, engine.WithResultRepository(results))
		serverOpts = append(serverOpts, httpapi.WithResults(results))
		logger.Info().Msg("game archive enabled")
	}

	// services
	engineSvc := engine.NewService(store, hub, logger, engineOpts...)
	botRunner := bot.NewRunner(engineSvc, engineSvc, logger, bot.WithDelay(cfg.BotMinDelay, cfg.BotMaxDelay))

	// API server
	apiServer := httpapi.NewServer(engineSvc, hub, logger, serverOpts...)
	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return engineSvc.RunScanner(gctx, cfg.ScanInterval)
	})
	g.Go(func() error {
		return botRunner.Run(gctx, cfg.BotPollInterval)
	})

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		hub.Stop()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
