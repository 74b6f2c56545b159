package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	_ "lending-engine/docs"
	"lending-engine/internal/api"
	"lending-engine/internal/batch"
	"lending-engine/internal/config"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/participation"
	"lending-engine/internal/domain/payment"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/database/postgres"
	"lending-engine/internal/infrastructure/lock"
	"lending-engine/internal/infrastructure/logging"
	"lending-engine/internal/infrastructure/storage"
)

// @title Lending Engine API
// @version 1.0
// @description Peer to peer lending backend: loan lifecycle, amortization, payments and funding participations.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)
	rabbitConn := setupRabbitMQ(cfg, logger)
	redisClient := initializeRedisClient(cfg, logger)

	services, loanRepo, auditRepo, publisher := initializeServices(cfg, rabbitConn, dbPool, redisClient, logger)

	accrualJob := batch.NewOverdueInterestJob(loanRepo, services.Ledger, publisher, loadTimezone(cfg, logger), logger).
		WithDayCount(cfg.Business.OverdueDayCount)
	cronScheduler := startBatchJobs(cfg, logger, accrualJob)

	consumer := startConsumer(cfg, rabbitConn, services.Payments, accrualJob, auditRepo, logger)

	router := api.SetupRouter(services, cfg, logger)
	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, consumer, rabbitConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// paymentReconcilerAdapter lets the queue consumer drive reconciliation
// without a proof file; proofs only travel over the HTTP surface.
type paymentReconcilerAdapter struct {
	processor *payment.Processor
}

func (a paymentReconcilerAdapter) ReconcilePayment(ctx context.Context, movementID int64) error {
	return a.processor.ReconcilePayment(ctx, movementID, nil)
}

func mustPublisher(rabbitConn *amqp.Connection, cfg *config.Config, logger *slog.Logger) event.Publisher {
	publisher, err := event.NewRabbitMQPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	return publisher
}

func initializeServices(cfg *config.Config, rabbitConn *amqp.Connection, dbPool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) (api.Services, loan.Repository, *postgres.AuditRepository, event.Publisher) {
	logger.Info("Initializing application components...")

	loanRepo := postgres.NewLoanRepository(dbPool, logger)
	participationRepo := postgres.NewParticipationRepository(dbPool, logger)
	auditRepo := postgres.NewAuditRepository(dbPool, logger)

	publisher := mustPublisher(rabbitConn, cfg, logger)
	locker := lock.NewRedisLoanLocker(redisClient, cfg.Redis.LockTTL, logger)
	proofStore := storage.NewClient(cfg.Storage.Endpoint, cfg.Storage.APIKey, cfg.Storage.Timeout, logger)

	engine := ledger.NewEngine(loanRepo, logger)
	loanService := loan.NewLoanService(loanRepo, publisher, logger)
	processor := payment.NewProcessor(loanRepo, engine, publisher, locker, proofStore, cfg.Business, logger)
	participationService := participation.NewService(participationRepo, loanRepo, publisher, proofStore, logger)

	return api.Services{
		Loans:          loanService,
		Ledger:         engine,
		Payments:       processor,
		Participations: participationService,
	}, loanRepo, auditRepo, publisher
}

func startConsumer(cfg *config.Config, rabbitConn *amqp.Connection, processor *payment.Processor, accrualJob *batch.OverdueInterestJob, auditRepo *postgres.AuditRepository, logger *slog.Logger) *event.Consumer {
	handler := event.NewReconciliationHandler(
		paymentReconcilerAdapter{processor: processor},
		accrualJob,
		auditRepo,
		cfg.RabbitMQ.Environment,
		logger,
	)

	routingKeys := []string{
		event.RoutingKeyPaymentCreated,
		event.RoutingKeySettleLatePaymentInterest,
	}

	consumer, err := event.NewConsumer(
		rabbitConn,
		cfg.RabbitMQ.ExchangeName,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		routingKeys,
		handler.HandleDelivery,
		logger,
	)
	if err != nil {
		logger.Error("Failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}

	if err := consumer.Start(context.Background()); err != nil {
		logger.Error("Failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("Queue consumer started", "queue", cfg.RabbitMQ.QueueName, "routing_keys", routingKeys)
	return consumer
}

func loadTimezone(cfg *config.Config, logger *slog.Logger) *time.Location {
	if cfg.Batch.Timezone == "" {
		return time.UTC
	}
	tz, err := time.LoadLocation(cfg.Batch.Timezone)
	if err != nil {
		logger.Warn("Invalid batch timezone, falling back to UTC", "timezone", cfg.Batch.Timezone, "error", err)
		return time.UTC
	}
	return tz
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, accrualJob *batch.OverdueInterestJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.OverdueAccrualSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 3 * * *"
		logger.Warn("Overdue accrual schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.OverdueAccrualTimeout
	if jobTimeout <= 0 {
		jobTimeout = 1 * time.Hour
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "OverdueInterestAccrual")
		jobLogger.Info("Cron triggered: Running overdue interest accrual job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := accrualJob.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue interest accrual job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Overdue interest accrual job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule overdue interest accrual job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue interest accrual job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, consumer *event.Consumer, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	stopConsumer(consumer, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)
	shutdownHTTPServer(srv, serverErrors, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func stopConsumer(consumer *event.Consumer, logger *slog.Logger) {
	if consumer == nil {
		return
	}
	logger.Info("Stopping queue consumer...")
	consumer.Stop()
	logger.Info("Queue consumer stopped.")
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn != nil && !rabbitConn.IsClosed() {
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	} else {
		logger.Info("RabbitMQ connection already closed, skipping close.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	logger.Info("Initializing Redis client...")
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		os.Exit(1)
		return nil
	}

	logger.Info("Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		return
	}
	logger.Info("Closing Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Redis client connection closed.")
	}
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if cfg.RabbitMQ.URL == "" {
		logger.Error("RabbitMQ URL is not configured.")
		os.Exit(1)
		return nil
	}

	conn, err := connectRabbitMQ(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
		return nil
	}
	return conn
}
