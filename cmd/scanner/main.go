// Command scanner runs the background risk scan loop standalone, without
// the API server. Useful for running the sweep against a shared database
// from a separate process.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/mbd888/walletguard/internal/alert"
	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/chain"
	"github.com/mbd888/walletguard/internal/config"
	"github.com/mbd888/walletguard/internal/detect"
	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/risk"
	"github.com/mbd888/walletguard/internal/scanner"
	"github.com/mbd888/walletguard/internal/scorer"
	"github.com/mbd888/walletguard/internal/wallet"
)

func main() {
	logger := logging.New("info", "text")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required; the standalone scanner has no in-memory mode")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	source, err := chain.NewAlchemyClient(ctx, cfg.RPCURL, cfg.FetchTimeout)
	if err != nil {
		logger.Error("failed to connect transaction source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	wallets := wallet.NewPostgresStore(db)
	assessments := risk.NewPostgresStore(db)
	blacklistStore := blacklist.NewPostgresStore(db)
	alertStore := alert.NewPostgresStore(db)

	checker := blacklist.NewChecker(blacklistStore, logger)
	sink := alert.NewSink(alertStore, nil, logger)

	engine := risk.NewEngine(
		source,
		detect.NewSet(detect.DefaultConfig()),
		scorer.Load(cfg.ModelPath, logger),
		checker,
		risk.NewAggregator(cfg.MLConfidenceFloor),
		assessments,
		wallets,
		logging.Named(logger, "risk"),
		cfg.FetchLimit,
	)

	scanCfg := scanner.DefaultConfig()
	scanCfg.Interval = cfg.ScanInterval
	scanCfg.AlertThreshold = cfg.AlertThreshold
	sc := scanner.New(scanCfg, engine, wallets, blacklistStore, sink,
		logging.Named(logger, "scanner"))

	sc.Start(ctx)
	logger.Info("scanner running", "interval", cfg.ScanInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	sc.Stop()
	logger.Info("scanner stopped")
}
