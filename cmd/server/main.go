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

	"github.com/veridocs/docchat/internal/api"
	"github.com/veridocs/docchat/internal/config"
	"github.com/veridocs/docchat/internal/core"
	"github.com/veridocs/docchat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Select the storage backend; both satisfy the same store contract.
	var st store.Store
	switch cfg.StorageBackend {
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		st = sqliteStore
		log.Printf("Using SQLite storage at %s", cfg.DatabaseURL)
	case "memory":
		st = store.NewMemStore()
		log.Println("Using in-memory storage (data is lost on restart)")
	default:
		log.Fatalf("Unknown STORAGE_BACKEND %q (want \"memory\" or \"sqlite\")", cfg.StorageBackend)
	}
	defer st.Close()

	// Initialize LLM service
	llmService, err := core.NewLLMService(cfg.GeminiAPIKey, cfg.PromptCharBudget, cfg.ModelTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	defer llmService.Close()

	// Initialize Chat service
	chatService := core.NewChatService(st, llmService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, cfg.MaxUploadBytes)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // model calls can take a while
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish before forcing exit.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
