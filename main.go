package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/novaflow/internal/adapter/llm"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/repository"
	"github.com/xiaot623/novaflow/internal/runner"
	"github.com/xiaot623/novaflow/internal/service"
	transport "github.com/xiaot623/novaflow/internal/transport/http"
	"github.com/xiaot623/novaflow/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting novaflow...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Provider mode: %s", cfg.Mode)
	log.Printf("Starting URL mode: %s", cfg.StartingURLMode)
	log.Printf("Artifacts dir: %s", cfg.ArtifactsDir)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize model provider
	provider, err := llm.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize model provider: %v", err)
	}

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.StartingURLMode, cfg.AllowedStartingHosts)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize browser runner
	stepRunner := runner.New(cfg.Headless, cfg.NavTimeout, cfg.ArtifactsDir)

	// Initialize service
	svc := service.New(db, provider, policyEngine, stepRunner, cfg)

	// Create HTTP server
	server := transport.NewServer(svc, cfg)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down novaflow...")

	// Graceful shutdown: stop accepting requests, then stop lanes and
	// browser sessions.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	svc.Shutdown()

	log.Println("Novaflow stopped")
}
