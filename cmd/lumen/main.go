package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lumenmedi/lumen/internal/app"
	"github.com/lumenmedi/lumen/internal/config"
	"github.com/lumenmedi/lumen/internal/logger"
	"github.com/lumenmedi/lumen/internal/metrics"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	if err := app.Run(ctx, cfg); err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

// startMonitoringServer exposes health and run metrics for schedulers that
// probe the process while it works.
func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"healthy": metrics.Global.Healthy(),
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Global.GetStats())
	})

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("monitoring server stopped", "error", err)
	}
}
