// Package main is the entry point for the strategy backtesting engine's HTTP
// server: it loads configuration, wires the response cache, worker pool and
// bar source, starts the scheduler's data-date-bump job, and serves
// engine.Run over HTTP until it receives a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stratbacktest/internal/barsource"
	"github.com/aristath/stratbacktest/internal/batch"
	"github.com/aristath/stratbacktest/internal/config"
	"github.com/aristath/stratbacktest/internal/respcache"
	"github.com/aristath/stratbacktest/internal/scheduler"
	"github.com/aristath/stratbacktest/internal/server"
	"github.com/aristath/stratbacktest/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	cache, err := respcache.Open(cfg.RespCachePath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open response cache")
	}
	defer cache.Close()

	pool := batch.New(cfg.WorkerPoolSize)

	bars := barsource.NewCSVStore(cfg.DataDir)

	srv := server.New(server.Config{
		Log:      log,
		Config:   cfg,
		Cache:    cache,
		Pool:     pool,
		Bars:     bars.Load,
		Formulas: nil, // custom-formula evaluation is out of core scope
	})

	// botIDs is empty here since this engine does not track bot registrations
	// centrally; a deployment that does would pass its known ids.
	sched := scheduler.New(log)
	bumpJob := scheduler.NewDataDateBumpJob(cache, nil, time.Now)
	if err := sched.AddJob("0 0 6 * * *", bumpJob); err != nil {
		log.Fatal().Err(err).Msg("failed to register data-date bump job")
	}
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-quit:
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}

	log.Info().Msg("server stopped")
}
