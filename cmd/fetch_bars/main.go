package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"bandScalper/config"
	"bandScalper/internal/adapters/binanceclient"
	"bandScalper/internal/adapters/logger"
	"bandScalper/internal/domain"
	"bandScalper/internal/strategy/indicators"
	"bandScalper/internal/utils"
)

type rangeFetcher interface {
	FetchBarsRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error)
}

func main() {
	days := flag.Int("days", 7, "number of days of history to fetch")
	out := flag.String("out", "", "output CSV path (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration (set EXECUTION_MODE=paper to skip API keys): %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	// 3. Initialize Exchange Client (public endpoints only)
	clientCfg := binanceclient.Config{
		APIKey:            cfg.APIKey,
		SecretKey:         cfg.SecretKey,
		UseTestnet:        cfg.IsTestnet,
		Logger:            appLogger,
		QuantityPrecision: cfg.QuantityPrecision,
	}
	var fetcher rangeFetcher
	if cfg.MarketType == config.MarketFutures {
		fetcher, err = binanceclient.NewFutures(clientCfg)
	} else {
		fetcher, err = binanceclient.NewSpot(clientCfg)
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	engine, err := indicators.NewEngine(cfg.Indicators())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize indicator engine: %v", err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	appLogger.Info(ctx, "Fetching bars", map[string]interface{}{
		"symbol":   cfg.Symbol,
		"interval": cfg.Interval,
		"market":   cfg.MarketType,
		"from":     start.Format(time.RFC3339),
		"to":       end.Format(time.RFC3339),
	})
	bars, err := fetcher.FetchBarsRange(ctx, cfg.Symbol, cfg.Interval, start, end)
	if err != nil {
		log.Fatalf("Error fetching bars: %v", err)
	}
	appLogger.Info(ctx, "Fetched bars", map[string]interface{}{"count": len(bars), "warmup": engine.Warmup()})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", cfg.Symbol, cfg.Interval, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteBarsToCSV(bars, engine.Compute(bars), filename); err != nil {
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}
