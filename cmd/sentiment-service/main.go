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

	"market-sentiment-pipeline/internal/ingestor"
	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/internal/pipeline/config"
	delivery "market-sentiment-pipeline/internal/pipeline/delivery/http"
	"market-sentiment-pipeline/internal/pipeline/repository"
	"market-sentiment-pipeline/internal/pipeline/service"
	"market-sentiment-pipeline/pkg/logger"
	"market-sentiment-pipeline/pkg/postgres"
	redisPkg "market-sentiment-pipeline/pkg/redis"
	"market-sentiment-pipeline/pkg/telegram"
	"market-sentiment-pipeline/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the sentiment pipeline service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Sentiment Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redisPkg.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redisPkg.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize the Gemini analyzer
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini AI client", zap.Error(err))
	}
	analyzerRepo, err := repository.NewGeminiAnalyzerRepository(cfg, appLogger, genAiClient)
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini analyzer repository", zap.Error(err))
	}

	// Initialize repositories
	recordRepo := repository.NewSentimentRecordRepository(db.DB)
	stagingRepo := repository.NewStagingRepository(redisClient, appLogger, cfg.Redis.StreamMaxLen)

	// Initialize the sentiment cache
	cacheStore := cache.New(cache.Config{
		RealtimeTTL:   cfg.Pipeline.RealtimeTTL,
		AggregateTTL:  cfg.Pipeline.AggregateTTL,
		AlertCapacity: cfg.Pipeline.AlertCapacity,
	})

	// Initialize the alert notifier
	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
	}

	// Initialize services
	alertEngine := service.NewAlertEngine(cacheStore, notifier, appLogger, cfg.Pipeline.AlertMinConfidence, cfg.Pipeline.AlertMinAbsScore)
	batchProcessor := service.NewBatchProcessor(
		stagingRepo,
		recordRepo,
		analyzerRepo,
		cacheStore,
		alertEngine,
		appLogger,
		cfg.Pipeline.BatchSize,
		cfg.Pipeline.BatchInterval,
		cfg.Pipeline.AnalyzerTimeout,
	)
	queryService := service.NewQueryService(cacheStore, appLogger)
	sweeper := service.NewRetentionSweeper(cacheStore, appLogger, cfg.Pipeline.RetentionWindow, cfg.Pipeline.SweepSchedule)

	// Start background workers
	utils.GoSafe(func() { batchProcessor.Start(ctx) })
	if err := sweeper.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start retention sweeper", zap.Error(err))
	}

	if cfg.Ingestor.Enabled {
		feedIngestor := ingestor.NewFeedIngestor(cfg.Ingestor, stagingRepo, appLogger)
		if err := feedIngestor.Start(ctx); err != nil {
			appLogger.Fatal("Failed to start feed ingestor", zap.Error(err))
		}
	}

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiGroup := e.Group("/api/v1")
	delivery.NewSentimentHandler(queryService, stagingRepo, appLogger).RegisterRoutes(apiGroup)
	delivery.NewDeadLetterHandler(stagingRepo, appLogger).RegisterRoutes(apiGroup)

	utils.GoSafe(func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	})

	appLogger.Info("Sentiment service started")

	<-ctx.Done()
	appLogger.Info("Shutting down sentiment service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	appLogger.Info("Sentiment service stopped")
}

func main() {
	rootCmd := &cobra.Command{Use: "sentiment-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %s\n", err)
		os.Exit(1)
	}
}
