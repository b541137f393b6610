package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"poupapig/internal/ai"
	appamqp "poupapig/internal/amqp"
	"poupapig/internal/bot"
	"poupapig/internal/cache"
	"poupapig/internal/config"
	apphttp "poupapig/internal/http"
	"poupapig/internal/ratelimit"
	"poupapig/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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

	// The queue is optional: without it the worker's sweep still drains
	// deliveries from the database.
	var queue *appamqp.Client
	if cfg.AMQPURL != "" {
		queue, err = appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, continuing without queue", "error", err)
		} else {
			defer queue.Close()
		}
	}

	var intent ai.Client
	if cfg.OpenAIAPIKey != "" {
		intent = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("Using OpenAI intent provider", "model", cfg.OpenAIModel)
	} else {
		intent = ai.NewMock()
		logger.Warn("No OPENAI_API_KEY set, using keyword intent provider")
	}

	var deliveryQueue bot.DeliveryQueue
	var mirrorQueue bot.MirrorQueue
	if queue != nil {
		deliveryQueue = queue
		if cfg.MirrorEnabled() {
			mirrorQueue = queue
		}
	}
	notifier := bot.NewQueueNotifier(repo, deliveryQueue)
	processor := bot.NewProcessor(repo, repo, repo, intent, notifier, mirrorQueue)

	memory := cache.NewMemory()
	defer memory.Stop()
	webhookLimiter := ratelimit.New(memory, ratelimit.WebhookOptions())
	apiLimiter := ratelimit.New(memory, ratelimit.APIOptions())

	srv := apphttp.NewServer(":"+cfg.Port, processor, intent, webhookLimiter, apiLimiter, cfg.APIToken)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting poupapig server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
