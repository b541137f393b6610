package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appamqp "poupapig/internal/amqp"
	"poupapig/internal/config"
	"poupapig/internal/sheets"
	gsheet "poupapig/internal/sheets/google"
	"poupapig/internal/storage"
	"poupapig/internal/whatsapp"
	"poupapig/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting poupapig-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	gateway := whatsapp.New(cfg.EvolutionBaseURL, cfg.EvolutionAPIKey, cfg.EvolutionInstance)

	var ledger sheets.LedgerWriter
	if cfg.MirrorEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Ledger mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Ledger mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		queue, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, running on sweep only", "error", err)
		} else {
			defer queue.Close()
			consumer = queue
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	w := worker.New(repo, gateway, ledger, cfg.DeliveryBatchSize, cfg.SweepInterval)
	if err := w.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
