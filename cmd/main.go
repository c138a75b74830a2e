package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cankaraca/gymstreak/app"
	"github.com/cankaraca/gymstreak/common/config"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting checkin engine in %s mode", cfg.Server.Environment)
	log.Printf("Using DynamoDB table: %s", cfg.DynamoDB.TableName)

	ctx := context.Background()

	application, appErr := app.New(ctx, cfg)
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if startErr := application.Start(); startErr != nil {
		log.Fatalf("Failed to start application: %v", startErr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	application.Stop()

	log.Println("Server stopped")
}
