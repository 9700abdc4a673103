package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"marketplace-identity/internal/config"
	"marketplace-identity/internal/db"
	"marketplace-identity/internal/events"
	"marketplace-identity/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	// Eventing is optional: without brokers the publisher is nil and the
	// reset flow runs without emitting events.
	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	if publisher == nil {
		log.Println("events: KAFKA_BROKERS not set, publishing disabled")
	}

	app := fiber.New(fiber.Config{
		AppName: "Marketplace Identity",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	server.Register(app, database, cfg, publisher)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("fiber.Shutdown error: %v", err)
		}
	}()

	log.Printf("starting server on %s", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}

	// Give in-flight async publishes time to land before closing the writer.
	if publisher != nil {
		time.Sleep(events.ShutdownDrainDuration)
		if err := publisher.Close(); err != nil {
			log.Printf("events: close failed: %v", err)
		}
	}
}
