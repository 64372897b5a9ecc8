package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/trogers1052/cot-signal-service/internal/api"
	"github.com/trogers1052/cot-signal-service/internal/catalog"
	"github.com/trogers1052/cot-signal-service/internal/cftc"
	"github.com/trogers1052/cot-signal-service/internal/config"
	"github.com/trogers1052/cot-signal-service/internal/dashboard"
	"github.com/trogers1052/cot-signal-service/internal/datasource"
	"github.com/trogers1052/cot-signal-service/internal/kafka"
	"github.com/trogers1052/cot-signal-service/internal/metrics"
	"github.com/trogers1052/cot-signal-service/internal/models"
	"github.com/trogers1052/cot-signal-service/internal/prices"
	"github.com/trogers1052/cot-signal-service/internal/redis"
	"github.com/trogers1052/cot-signal-service/internal/rules"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	loc, err := models.LoadMarketLocation(cfg.Analysis.Timezone)
	if err != nil {
		logger.Fatal("Failed to load market timezone", zap.Error(err))
	}

	// A broken rules table is fatal: every signal depends on it
	table, err := rules.Load(cfg.Sources.RulesFile)
	if err != nil {
		logger.Fatal("Failed to load signal rules", zap.String("path", cfg.Sources.RulesFile), zap.Error(err))
	}
	cat, err := catalog.Load(cfg.Sources.CatalogFile)
	if err != nil {
		logger.Fatal("Failed to load commodity catalog", zap.String("path", cfg.Sources.CatalogFile), zap.Error(err))
	}
	logger.Info("Loaded signal rules",
		zap.Int("rules", len(table.Rules())),
		zap.Int("commodities", len(cat.All())))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Upstream fetchers share one rate limit
	httpClient := &http.Client{Timeout: cfg.Sources.HTTPTimeout}
	limiter := rate.NewLimiter(rate.Limit(cfg.Sources.RateLimitRPS), cfg.Sources.RateBurst)
	filings := cftc.NewArchiveFetcher(httpClient, cfg.Sources.CFTCURL, limiter, loc, logger.Named("cftc"))
	bars := prices.NewYahooFetcher(httpClient, cfg.Sources.ChartURL, limiter, loc, logger.Named("prices"))

	memoOpts := datasource.MemoOptions{
		SharedTTL:    cfg.Redis.TTL,
		FetchTimeout: 2 * cfg.Sources.HTTPTimeout,
		Location:     loc,
		Metrics:      m,
		Logger:       logger.Named("memo"),
	}

	// Connect to Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without shared cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			memoOpts.Shared = redisClient
			logger.Info("Connected to Redis cache", zap.String("addr", cfg.Redis.Address()))
		}
	}
	memo := datasource.NewMemo(filings, bars, memoOpts)

	serviceOpts := dashboard.Options{
		Location:         loc,
		LookbackDays:     cfg.Analysis.LookbackDays,
		TrendWindow:      cfg.Analysis.TrendWindow,
		DefaultRangeDays: cfg.Analysis.DefaultRangeDays,
		Invalidator:      memo,
		Metrics:          m,
		Logger:           logger.Named("dashboard"),
	}

	// Create Kafka producer
	brokers := cfg.Kafka.BrokerList()
	var producer *kafka.Producer
	if len(brokers) > 0 {
		producer = kafka.NewProducer(brokers, cfg.Kafka.Topic, logger.Named("kafka"), m)
		defer producer.Close()
		serviceOpts.Publisher = producer
		logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	svc := dashboard.NewService(table, cat, memo, memo, serviceOpts)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumer *kafka.RefreshConsumer
	if len(brokers) > 0 {
		consumer = kafka.NewRefreshConsumer(brokers, cfg.Kafka.RefreshTopic, cfg.Kafka.ConsumerGroup, svc, logger.Named("kafka"))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("Kafka refresh consumer error", zap.Error(err))
			}
		}()
	}

	// Set up HTTP handler and routes
	var pinger api.Pinger
	if redisClient != nil {
		pinger = redisClient
	}
	handler := api.NewHandler(svc, pinger, producer != nil, logger.Named("api"))
	router := api.SetupRoutes(handler, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	// Cancel context to stop the Kafka consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("Error closing Kafka consumer", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
