package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/inkpress/internal/database"
	"github.com/hugh/inkpress/internal/tasks"
	"github.com/hugh/inkpress/pkg/config"
	"github.com/hugh/inkpress/pkg/queue"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting inkpress worker")

	if err := util.ValidateCronExpr(cfg.Jobs.OrphanSweepCron); err != nil {
		logger.Error("invalid ORPHAN_SWEEP_CRON", "cron", cfg.Jobs.OrphanSweepCron, "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, cfg.Jobs.WorkerConcurrency)

	// Create task handler
	handler := tasks.NewHandler(db, logger, cfg.Jobs.OrphanGrace())

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic orphan sweep
	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Jobs.OrphanSweepCron, tasks.NewOrphanSweepTask())
	if err != nil {
		logger.Error("failed to schedule orphan sweep", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Jobs.OrphanSweepCron, time.Now()); err == nil {
		logger.Info("orphan sweep scheduled", "entry_id", entryID, "cron", cfg.Jobs.OrphanSweepCron, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
