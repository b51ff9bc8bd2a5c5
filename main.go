package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"github.com/prometheus/client_golang/prometheus"

	"bandScalper/config"
	"bandScalper/internal/adapters/binanceclient"
	"bandScalper/internal/adapters/httpapi"
	"bandScalper/internal/adapters/logger"
	"bandScalper/internal/adapters/metrics"
	"bandScalper/internal/adapters/paper"
	"bandScalper/internal/adapters/redisstatus"
	"bandScalper/internal/adapters/sqlite"
	"bandScalper/internal/app"
	"bandScalper/internal/ports"
	"bandScalper/internal/risk"
	"bandScalper/internal/strategy"
	"bandScalper/internal/strategy/indicators"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	fatal := func(err error, msg string) {
		appLogger.Error(ctx, err, "FATAL: "+msg)
		log.Fatalf("FATAL: %s: %v", msg, err) // Also log to stderr
	}

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		fatal(err, "Failed to initialize database repository")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Exchange Client (Binance Adapter)
	exchange, err := newExchange(cfg, appLogger)
	if err != nil {
		fatal(err, "Failed to initialize Binance client")
	}
	if err := exchange.Ping(ctx); err != nil {
		fatal(err, "Binance API is unreachable")
	}
	if err := exchange.SetServerTime(ctx); err != nil {
		fatal(err, "Failed to synchronize server time")
	}

	var executor ports.OrderExecutor = exchange
	if cfg.IsPaper() {
		executor, err = paper.New(paper.Config{Market: exchange, Interval: cfg.Interval, Logger: appLogger})
		if err != nil {
			fatal(err, "Failed to initialize paper executor")
		}
	}
	appLogger.Info(ctx, "Exchange initialized", map[string]interface{}{
		"market":    cfg.MarketType,
		"execution": cfg.ExecutionMode,
		"testnet":   cfg.IsTestnet,
	})

	// 5. Initialize Indicators, Strategy and Risk
	engine, err := indicators.NewEngine(cfg.Indicators())
	if err != nil {
		fatal(err, "Failed to initialize indicator engine")
	}
	evaluator, err := strategy.New(cfg.Strategy(), appLogger)
	if err != nil {
		fatal(err, "Failed to initialize signal evaluator")
	}
	riskMgr, err := risk.NewRiskManager(cfg.Risk())
	if err != nil {
		fatal(err, "Failed to initialize risk manager")
	}

	// 6. Optional collaborators
	opts := []app.Option{app.WithMetrics(metrics.New(prometheus.DefaultRegisterer, cfg.Symbol))}
	if cfg.RedisAddr != "" {
		publisher, err := redisstatus.New(ctx, redisstatus.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisStatusKey,
			TTL:      cfg.RedisStatusTTL,
			Logger:   appLogger,
		})
		if err != nil {
			fatal(err, "Failed to connect status publisher")
		}
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
	}

	// 7. Initialize Application Service
	tradingService, err := app.NewTradingService(cfg, appLogger, exchange, executor, repo, engine, evaluator, riskMgr, opts...)
	if err != nil {
		fatal(err, "Failed to initialize trading service")
	}
	if err := tradingService.Init(ctx); err != nil {
		fatal(err, "Failed to restore trading state")
	}

	// 8. Control surface
	server, err := httpapi.NewServer(httpapi.Config{
		Addr:       cfg.ListenAddr(),
		Controller: tradingService,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     appLogger,
	})
	if err != nil {
		fatal(err, "Failed to initialize HTTP server")
	}
	server.Start(ctx)

	// 9. Run until a shutdown signal arrives
	if err := tradingService.Run(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
	}
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error(ctx, err, "HTTP server shutdown failed")
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}

func newExchange(cfg *config.Config, appLogger ports.Logger) (ports.ExchangeClient, error) {
	clientCfg := binanceclient.Config{
		APIKey:            cfg.APIKey,
		SecretKey:         cfg.SecretKey,
		UseTestnet:        cfg.IsTestnet,
		Logger:            appLogger,
		QuantityPrecision: cfg.QuantityPrecision,
	}
	if cfg.MarketType == config.MarketFutures {
		client, err := binanceclient.NewFutures(clientCfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	client, err := binanceclient.NewSpot(clientCfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
