package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	mongoadapter "github.com/robertarktes/pet-services-marketplace/internal/adapters/mongo"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/rabbit"
	"github.com/robertarktes/pet-services-marketplace/internal/audit"
	"github.com/robertarktes/pet-services-marketplace/internal/config"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	auditQueue   = "pm.audit"
	auditPattern = "booking.*"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required for the audit worker")
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "pm-audit-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	auditLog := mongoadapter.NewAuditLogger(mongoClient.Database(cfg.MongoDB), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, auditQueue, auditPattern)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume %s: %v", auditQueue, err)
	}

	logger.WithField("queue", auditQueue).Info("audit worker started")
	if err := audit.NewWorker(auditLog, logger).Run(ctx, deliveries); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("audit worker stopped")
		os.Exit(1)
	}
	logger.Info("Shutdown audit worker")
}
