package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tickwatch/internal/config"
	"tickwatch/internal/domain"
	"tickwatch/internal/feed"
	"tickwatch/internal/httpapi"
	"tickwatch/internal/prices"
	"tickwatch/internal/store"
	"tickwatch/internal/util"
)

func main() {
	godotenv.Load()

	cfgPath := "config/tickwatch.yaml"
	if p := os.Getenv("TICKWATCH_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "tickwatch.db")
	}
	db, err := store.NewSQLiteStore(sqlitePath)
	if err != nil {
		logger.Error("opening sqlite store", "path", sqlitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	priceLog := store.NewParquetPriceLog(cfg.Storage.DataDir, 0)
	defer func() {
		if err := priceLog.Flush(); err != nil {
			logger.Warn("flushing price log", "error", err)
		}
	}()

	hub := prices.NewHub(logger)
	go hub.Run()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	market := domain.Market(cfg.Dashboard.Market)
	source := buildSource(cfg, db, priceLog, hub, market)
	go func() {
		if err := source.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("price source stopped", "source", source.Name(), "error", err)
			cancel()
		}
	}()

	api := httpapi.NewServer(db, db, priceLog, hub, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		logger.Info("tickwatch-server listening", "addr", addr, "source", source.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	logger.Info("tickwatch-server stopped")
}

// buildSource picks the configured price source.
func buildSource(cfg *config.Config, db *store.SQLiteStore, priceLog *store.ParquetPriceLog, hub *prices.Hub, market domain.Market) feed.Source {
	interval := time.Duration(cfg.Feed.IntervalMS) * time.Millisecond
	switch cfg.Feed.Source {
	case "alpaca":
		a := cfg.Feed.Alpaca
		return feed.NewAlpacaPoller(a.APIKey, a.APISecret, a.DataURL, db, priceLog, hub, market, interval, a.RateLimitPerMin)
	default:
		return feed.NewSimulator(db, priceLog, hub, market, interval)
	}
}
