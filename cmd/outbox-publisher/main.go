package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/crdb"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/rabbit"
	"github.com/robertarktes/pet-services-marketplace/internal/config"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"github.com/robertarktes/pet-services-marketplace/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.StorageBackend != config.StorageCRDB {
		log.Fatalf("outbox publisher needs the crdb storage backend, got %q", cfg.StorageBackend)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "pm-outbox-publisher")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	observability.InitMetrics()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	publisher := outbox.NewPublisher(repo, rabbitPub, logger, cfg.OutboxPollInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.WithField("interval", cfg.OutboxPollInterval.String()).Info("outbox publisher started")
	publisher.Run(ctx)
	logger.Info("Shutdown outbox publisher")
}
