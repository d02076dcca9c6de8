/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crew ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the logger
  3. Initialize SQLite store
  4. Start the write queue and the debt digest
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT, default: 8080)
  -db      SQLite database path (overrides DB_PATH, default: crew.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  APP_PORT, APP_ENV, DB_PATH, LOG_LEVEL, LOG_FORMAT,
  CORS_ALLOWED_ORIGINS, DIGEST_SCHEDULE (see config/config.go)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections, end live streams
  2. Wait for active requests to complete (30s timeout)
  3. Stop the digest and drain the write queue
  4. Close database connection

EXAMPLES:
  ./server -db="./data/crew.db"
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration
*/
package main

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

	"github.com/rs/zerolog/log"

	"github.com/warp/crew-ledger/api"
	"github.com/warp/crew-ledger/config"
	"github.com/warp/crew-ledger/logging"
	"github.com/warp/crew-ledger/store/sqlite"
	"github.com/warp/crew-ledger/worker"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := logging.New(cfg.Log)

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.Database.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	queue := worker.NewQueue(logger)
	queue.Start()
	defer queue.Stop()

	handler := api.NewHandler(store, queue, logger)

	digest := api.NewDigestScheduler(handler.Debts, cfg.Digest.Schedule, logger)
	if err := digest.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule debt digest")
	}
	defer digest.Stop()
	handler.Digest = digest

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AccessLog:      os.Stdout,
		Env:            cfg.App.Env,
		Production:     cfg.IsProduction(),
	})

	// Live streams hang off baseCtx so shutdown can end them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	go func() {
		logger.Info().Int("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
