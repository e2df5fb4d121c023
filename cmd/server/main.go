/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the site timesheet server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Configure structured logging
  3. Initialize SQLite store
  4. Create API handler, seed preset formulas into an empty database
  5. Start the lockdown scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: config.yml when present)

ENVIRONMENT:
  APP_HOST, APP_PORT, APP_ALLOWED_ORIGINS, DB_PATH, LOG_LEVEL,
  SCHEDULER_ENABLED, SCHEDULER_INTERVAL, ACCESS_RESTRICT_SUPERVISORS,
  SEED_PRESETS. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the lockdown scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with in-memory database
  DB_PATH=":memory:" ./server

  # Run with a config file
  ./server -config=/etc/timesheets/config.yml

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Lockdown scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/api"
	"github.com/warp/site-timesheets/config"
	"github.com/warp/site-timesheets/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	initLogger(conf.Log.Level)

	interval, err := conf.SchedulerInterval()
	if err != nil {
		log.WithError(err).Fatal("invalid scheduler interval")
	}

	// Initialize store
	store, err := sqlite.New(conf.Database.Path)
	if err != nil {
		log.WithError(err).WithField("db_path", conf.Database.Path).Fatal("failed to initialize database")
	}
	defer store.Close()

	logger := log.NewEntry(log.StandardLogger())
	policy := access.Policy{RestrictSupervisorsToSites: conf.RestrictSupervisors()}
	handler := api.NewHandler(store, policy, logger)

	if conf.SeedPresets() {
		n, err := handler.SeedPresets(context.Background())
		if err != nil {
			log.WithError(err).Warn("failed to seed preset formulas")
		} else if n > 0 {
			log.WithField("count", n).Info("preset formulas seeded")
		}
	}

	scheduler := api.NewLockdownScheduler(handler.Lockdown, handler.Service.Clock, logger)
	scheduler.CheckInterval = interval
	scheduler.Enabled = conf.SchedulerEnabled()
	scheduler.Start()

	server := &http.Server{
		Addr:         conf.Addr(),
		Handler:      api.NewRouter(handler, conf.Origins()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server stopped")
}

func initLogger(level string) {
	log.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyTime: "@timestamp",
			log.FieldKeyMsg:  "message",
		},
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
