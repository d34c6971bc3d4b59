package main

import (
	"os"

	"laptop-intelligence/api"
	"laptop-intelligence/config"
	"laptop-intelligence/services"
	"laptop-intelligence/storage"
	"laptop-intelligence/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger()

	logger.Info("=== Laptop Intelligence — API server ===")

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	targets := config.Targets(cfg.PDFDir)

	// Without an API key the gateway runs in deterministic fallback mode.
	var completer services.Completer
	if cfg.GeminiAPIKey != "" {
		completer = services.NewGeminiCompleter(cfg)
	} else {
		logger.Warn("GEMINI_API_KEY not set — assistant running in fallback mode")
	}
	gateway := services.NewGateway(store, targets, completer, logger)

	insights := services.NewInsightService(logger)
	handler := api.NewHandler(store, gateway, insights, logger)
	router := api.NewRouter(handler)

	addr := ":" + cfg.APIPort
	logger.Info("Listening on %s", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}
