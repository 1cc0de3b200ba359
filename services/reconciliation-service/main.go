package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/paylens/reconciliation-service/internal/api"
	"github.com/paylens/reconciliation-service/internal/events"
	"github.com/paylens/reconciliation-service/internal/notify"
	"github.com/paylens/reconciliation-service/internal/reconciler"
	"github.com/paylens/reconciliation-service/internal/store"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	port := getEnv("PORT", "8080")
	databaseURL := os.Getenv("DATABASE_URL")
	brokers := os.Getenv("KAFKA_BROKERS")
	topic := getEnv("RECON_EVENT_TOPIC", "reconciliation-events")
	webhookURL := os.Getenv("WEBHOOK_URL")

	st, closeStore := openStore(databaseURL)
	defer closeStore()

	publisher := events.NewPublisher(brokers, topic)
	defer publisher.Close()

	opts := []reconciler.Option{reconciler.WithPublisher(publisher)}
	if webhookURL != "" {
		opts = append(opts, reconciler.WithNotifier(notify.NewWebhook(webhookURL)))
	}

	svc := reconciler.NewService(st)
	engine := reconciler.NewEngine(st, opts...)
	router := api.NewServer(svc, engine).Router()

	log.WithFields(log.Fields{
		"port":            port,
		"events_enabled":  publisher.Enabled(),
		"webhook_enabled": webhookURL != "",
	}).Info("Reconciliation Service starting")

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// openStore picks Postgres when DATABASE_URL is set, otherwise falls back
// to the in-memory store (state is lost on restart).
func openStore(databaseURL string) (store.Store, func()) {
	if databaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, databaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure schema: ", err)
	}
	return pg, pg.Close
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
