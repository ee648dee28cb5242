package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"finnews/internal/collect"
	"finnews/internal/config"
	"finnews/internal/fetch"
	"finnews/internal/logger"
	"finnews/internal/metrics"
	"finnews/internal/sources"
	"finnews/internal/storage"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	configPath := flag.String("config", cfg.SourcesPath, "path to the sources YAML config")
	windowHours := flag.Float64("window-hours", cfg.WindowHours, "trailing collection window in hours")
	outPath := flag.String("out", "", "write the JSON document here instead of stdout")
	flag.Parse()

	logger.Init(cfg.Debug)

	if cfg.EnableMonitoring {
		go startMonitoringServer(cfg.MonitoringPort)
	}

	registry, err := sources.Load(*configPath)
	if err != nil {
		logger.Error("load sources", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger.Info("sources loaded", "path", *configPath,
		"taiwan", len(registry.Regions[0].Sources),
		"global", len(registry.Regions[1].Sources),
		"threshold", registry.Threshold)

	var seen *storage.SeenStore
	if cfg.SeenStorePath != "" {
		seen = storage.NewSeenStore(cfg.SeenStorePath, time.Duration(cfg.SeenTTLHours)*time.Hour)
		if err := seen.Load(); err != nil {
			logger.Warn("seen store unavailable, continuing without it", "error", err)
			seen = nil
		}
	}

	collector := collect.New(registry, fetch.New(cfg.RequestTimeout), collect.Options{
		WindowHours: *windowHours,
		Concurrency: cfg.FetchConcurrency,
		Seen:        seen,
	})

	result := collector.Run(context.Background())

	if seen != nil {
		seen.Cleanup()
		if err := seen.Save(); err != nil {
			logger.Warn("seen store save failed", "error", err)
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("marshal result", "error", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0644); err != nil {
			logger.Error("write output", "path", *outPath, "error", err)
			os.Exit(1)
		}
		logger.Info("document written", "path", *outPath)
		return
	}
	os.Stdout.Write(data)
}

func startMonitoringServer(port string) {
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("monitoring server starting", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
