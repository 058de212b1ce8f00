package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/finance-tracker/internal/clock"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/events"
	"github.com/Dan9191/finance-tracker/internal/handler"
	"github.com/Dan9191/finance-tracker/internal/notify"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/scheduler"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Infof("Publishing ledger events to %s on %v", cfg.KafkaTopic, cfg.KafkaBrokers)
	}
	defer publisher.Close()

	// Initialize layers
	clk := clock.Real{Location: loc}
	svc := service.NewService(store, logger, cfg, publisher, clk)
	h := handler.NewHandler(svc, cfg, logger)

	var notifier scheduler.Notifier
	if cfg.NotificationsEnabled() {
		notifier = notify.NewSender(cfg, store, logger)
	} else {
		logger.Info("SMTP_HOST not set, planned payment notifications disabled")
	}
	sched, err := scheduler.New(svc, notifier, clk, logger, scheduler.Options{
		Spec:        cfg.SchedulerSpec,
		Location:    loc,
		ItemTimeout: cfg.SchedulerItemTimeout,
	})
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.SchedulerRunOnStart {
		report, err := sched.RunOnce(ctx)
		if err != nil {
			logger.Errorf("Initial scheduler run failed: %v", err)
		} else {
			logger.Infof("Initial scheduler run: %d due, %d materialized, %d failed", report.Due, report.Materialized, len(report.Failures))
		}
	}
	// ticks outlive the signal so Stop can let a running one finish
	sched.Start(context.Background())

	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		schedErr := sched.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return schedErr
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Exited with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// openStore builds the configured ledger store and returns its cleanup function
func openStore(cfg *config.Config, logger *logrus.Logger) (repository.Store, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := repository.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database migrations applied")
	}
	return repository.NewRepository(db), func() { db.Close() }, nil
}
