package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/i-dipanshu/project-raseed/internal/amqp"
	"github.com/i-dipanshu/project-raseed/internal/config"
	apphttp "github.com/i-dipanshu/project-raseed/internal/http"
	"github.com/i-dipanshu/project-raseed/internal/insight"
	"github.com/i-dipanshu/project-raseed/internal/log"
	"github.com/i-dipanshu/project-raseed/internal/parser"
	"github.com/i-dipanshu/project-raseed/internal/services"
	"github.com/i-dipanshu/project-raseed/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentApp})
	log.SetDefault(logger)

	logger.Info("Starting raseed API server")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	// Expense parsing runs through Gemini when a key is configured, with the
	// regex heuristic as the keyless fallback.
	var expenseParser parser.Parser
	var insightGen insight.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := parser.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Error("Failed to initialize Gemini parser", log.FieldError, err.Error())
			os.Exit(1)
		}
		expenseParser = gemini

		gen, err := insight.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini insight generator", log.FieldError, err.Error())
			os.Exit(1)
		}
		insightGen = gen
		logger.Info("Gemini enabled", log.FieldModel, cfg.GeminiModel)
	} else {
		expenseParser = parser.NewHeuristic()
		insightGen = insight.NewSummarizer()
		logger.Info("No GEMINI_API_KEY provided, using heuristic parser and summarizer")
	}

	// AMQP is optional: without it the worker's periodic sweep picks up new
	// expenses from the sync_status column.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(expenseParser, repo, events, cfg.DefaultMonthlyBudget, logger)
	insights := services.NewInsightService(insightGen, repo, repo, logger)

	srv := apphttp.NewServer(":"+cfg.Port, expenses, insights, logger)
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-runCtx.Done()
	logger.Info("Server stopped gracefully")
}
