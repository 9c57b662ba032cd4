/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the account ledger engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, read LOG_LEVEL
  2. Initialize SQLite store
  3. Create banking service and API handler
  4. Configure HTTP router and start the maintenance scheduler
  5. Recompute all balances (startup consistency pass)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: bank.db)
              Use ":memory:" for in-memory database
  -log-level  logrus level: debug, info, warn, error (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/bank.db"

  # Run with in-memory database
  ./server -db=":memory:"

ENVIRONMENT:
  LOG_LEVEL overrides -log-level when set.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Recurring maintenance jobs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/api"
	"github.com/meridian/ledger-engine/bank"
	"github.com/meridian/ledger-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bank.db", "SQLite database path")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		*logLevel = env
	}
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Wire the service and HTTP surface
	svc := bank.NewService(store, log)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	// Startup consistency pass: refold every stored balance before
	// serving, so a crash mid-write never survives a restart.
	ctx := context.Background()
	if err := svc.RecomputeAllBalances(ctx); err != nil {
		log.WithError(err).Warn("startup balance recompute failed")
	}
	if err := svc.Refresh(ctx); err != nil {
		log.WithError(err).Warn("initial projection load failed")
	}

	// Recurring maintenance jobs
	scheduler, err := api.NewScheduler(svc, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure scheduler")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
