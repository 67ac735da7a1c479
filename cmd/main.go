package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"fuelwatch/internal/config"
	"fuelwatch/internal/db"
	"fuelwatch/internal/kafka"
	"fuelwatch/internal/logging"
	"fuelwatch/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	database, err := db.New(context.Background(), cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close()

	svc := notification.New(database, logger, cfg)
	var wg sync.WaitGroup
	svc.Start(&wg)

	consumer := kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, database, svc)
	consumer.Start(&wg)
	logger.Infof("Consuming batches from topic %s", cfg.Kafka.Topic)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infof("Shutting down")
	consumer.Close()
	svc.Stop()
	wg.Wait()
}
