package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dionsnoeijen/polysynergy-node-runner/cmd/server/config"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/messaging"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/messaging/nats"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/persistence/postgres"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/scheduler"
	"github.com/spf13/cobra"
)

// backgroundWorkers bundles the outbox relay, cleanup sweep, and retention
// scheduler that every deployment mode (serve, worker) needs running.
type backgroundWorkers struct {
	outboxRelay *messaging.OutboxRelay
	cleanup     *messaging.CleanupWorker
	retention   *scheduler.RetentionScheduler
}

func startBackgroundWorkers(ctx context.Context, outbox *postgres.Outbox, publisher *nats.Publisher, resultRecorder *postgres.ResultRecorder) *backgroundWorkers {
	outboxRelay := messaging.NewOutboxRelay(outbox, publisher, 1*time.Second, 10)
	go func() {
		if err := outboxRelay.Start(ctx); err != nil {
			log.Printf("outbox relay error: %v", err)
		}
	}()
	fmt.Println("✅ Outbox relay worker started")

	cleanupWorker := messaging.NewCleanupWorker(outbox, 1*time.Hour, 7)
	go func() {
		if err := cleanupWorker.Start(ctx); err != nil {
			log.Printf("cleanup worker error: %v", err)
		}
	}()
	fmt.Println("✅ Cleanup worker started")

	retentionScheduler, err := scheduler.NewRetentionScheduler(resultRecorder, getEnvOr("RETENTION_SWEEP_CRON", "0 * * * *"))
	if err != nil {
		log.Fatalf("failed to schedule retention sweep: %v", err)
	}
	retentionScheduler.Start()
	fmt.Println("✅ Retention sweep scheduled")

	return &backgroundWorkers{
		outboxRelay: outboxRelay,
		cleanup:     cleanupWorker,
		retention:   retentionScheduler,
	}
}

func (w *backgroundWorkers) Stop() {
	w.outboxRelay.Stop()
	w.cleanup.Stop()
	w.retention.Stop()
}

// workerCmd runs only the background workers, without the HTTP API, for
// deployments that scale the worker process independently of the server.
func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the outbox relay, cleanup, and retention workers without the HTTP API",
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("🚀 DuraGraph Worker")

	ctx := context.Background()

	dbConfig := postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	pool, err := postgres.NewPool(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer postgres.Close(pool)
	fmt.Println("✅ Database connected")

	outbox := postgres.NewOutbox(pool)
	resultRecorder := postgres.NewResultRecorder(pool)

	logger := watermill.NewStdLogger(false, false)
	publisher, err := nats.NewPublisher(cfg.NATS.URL, logger)
	if err != nil {
		log.Fatalf("failed to create NATS publisher: %v", err)
	}
	defer publisher.Close()
	fmt.Println("✅ NATS publisher connected")

	workers := startBackgroundWorkers(ctx, outbox, publisher, resultRecorder)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n🛑 Shutting down gracefully...")
	workers.Stop()
	fmt.Println("👋 Shutdown complete")
	return nil
}
