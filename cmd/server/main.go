// Package main is the entry point for the show control server.
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

	"github.com/joho/godotenv"

	"github.com/bbernstein/sbsp-go/internal/api"
	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/config"
	"github.com/bbernstein/sbsp-go/internal/controller"
	"github.com/bbernstein/sbsp-go/internal/engine/audio"
	"github.com/bbernstein/sbsp-go/internal/executor"
	"github.com/bbernstein/sbsp-go/internal/history"
	"github.com/bbernstein/sbsp-go/internal/manager"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	eventBus := bus.New()

	showManager := manager.New(eventBus)
	if _, err := os.Stat(cfg.ShowFilePath); err == nil {
		showManager.LoadFromFile(cfg.ShowFilePath)
		if showManager.CurrentPath() == cfg.ShowFilePath {
			log.Printf("Loaded show file %s\n", cfg.ShowFilePath)
		} else {
			log.Printf("Failed to load show file %s, starting with an empty show\n", cfg.ShowFilePath)
		}
	} else {
		log.Printf("No show file at %s, starting with an empty show\n", cfg.ShowFilePath)
	}

	audioEngine, err := audio.NewEngine(cfg.AudioSampleRate, time.Duration(cfg.AudioPollInterval)*time.Millisecond)
	if err != nil {
		log.Fatalf("Failed to initialize audio engine: %v", err)
	}
	audioEngine.Start()

	exec := executor.New(showManager, audioEngine)
	exec.Start()

	showController := controller.New(showManager, exec, eventBus)
	showController.Start()

	historyDB, err := history.Connect(history.Config{
		Path:  cfg.HistoryDBPath,
		Debug: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	historyLog := history.NewLog(historyDB, eventBus)
	historyLog.Start()

	server := api.New(showController, showManager, eventBus, historyLog, cfg.CORSOrigin, cfg.IsDevelopment())

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		log.Printf("WebSocket endpoint: ws://localhost:%s/ws\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order of startup.
	historyLog.Close()
	showController.Close()
	exec.Close()
	audioEngine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Show Control Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Show file:   %s\n", cfg.ShowFilePath)
	fmt.Printf("  History DB:  %s\n", cfg.HistoryDBPath)
	fmt.Println("============================================")
}
