package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinwise/internal/amqp"
	"coinwise/internal/cache"
	"coinwise/internal/cli"
	apphttp "coinwise/internal/http"
	"coinwise/internal/insight"
	"coinwise/internal/ledger"
	applog "coinwise/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	// AMQP is optional; without it, writes simply skip the audit stream.
	var events ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP event stream enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP event stream disabled - no AMQP_URL provided")
	}

	ledgerSvc := ledger.NewService(store, store, events)

	// Insight pipeline: cache, quota, and the model fallback chain.
	insightCache := insight.NewCache(cfg.InsightCacheSize)
	limiter := insight.NewRateLimiter()

	var generator insight.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := insight.NewGeminiClient(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		generator = gemini
		logger.Info("Gemini backends configured", "models", cfg.GeminiModels)
	} else {
		generator = unparseableGenerator{}
		logger.Warn("GEMINI_API_KEY not set - insights fall back to derived advice")
	}
	dispatcher := insight.NewDispatcher(generator, cfg.GeminiModels)

	insightSvc := insight.NewService(ledgerSvc, insightCache, limiter, dispatcher)
	insightSvc.SetGenerationTimeout(cfg.GenerationTimeout)

	// Periodic sweep for expired cache entries and stale quota windows.
	cacheManager := cache.NewManager()
	cacheManager.Register(insightCache)
	cacheManager.Register(limiter)
	cacheManager.StartCleanup(cfg.CleanupInterval)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, store, insightSvc, store.Ping)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 90 * time.Second // insight generation can run long
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
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

	logger.Info("Starting coinwise server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// unparseableGenerator stands in when no API key is configured. Its
// output never parses, so every insight request gets the deterministic
// derived advice instead of failing.
type unparseableGenerator struct{}

func (unparseableGenerator) Generate(ctx context.Context, model, prompt string, history []insight.Turn) (string, error) {
	return "", nil
}
