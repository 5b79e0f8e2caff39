package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alo17-service/internal/adapters/kafka"
	"alo17-service/internal/api/routes"
	"alo17-service/internal/config"
	"alo17-service/internal/database"
	"alo17-service/internal/relay"
	"alo17-service/internal/repositories/postgres"
	"alo17-service/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting alo17 service")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize services
	presence := services.NewPresenceService(redisClient)

	var events *services.KafkaEventPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		events = services.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
		defer events.Close()
	} else {
		slog.Info("Kafka publishing disabled, no brokers configured")
	}

	messageRepo := postgres.NewMessageRepository(db)

	// Initialize the relay hub. Interface fields stay nil unless a real
	// implementation exists, so the hub can skip them.
	var hubEvents relay.EventPublisher
	if events != nil {
		hubEvents = events
	}
	hub := relay.NewHub(messageRepo, hubEvents, presence)
	go hub.Run()

	// Initialize router with all dependencies
	router := routes.NewRouter(hub, presence, db, cfg, events)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the relay hub
	hub.Stop()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
