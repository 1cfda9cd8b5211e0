package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brojonat/waveportal/service/config"
	"github.com/brojonat/waveportal/service/ethereum"
	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/metrics"
	natspkg "github.com/brojonat/waveportal/service/nats"
	"github.com/brojonat/waveportal/service/server"
	"github.com/brojonat/waveportal/service/wallet"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"contract", cfg.ContractAddress,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.NewMetrics(nil)
	}

	// Connect to the Ethereum node
	rpc, err := ethereum.Dial(ctx, cfg.EthRPCURL)
	if err != nil {
		logger.Error("failed to connect to ethereum node", "error", err)
		os.Exit(1)
	}
	defer rpc.Close()

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		logger.Error("failed to read chain id", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to ethereum node", "chain_id", chainID.String())

	parsed, err := ethereum.LoadABI(cfg.ContractABIPath)
	if err != nil {
		logger.Error("failed to load contract ABI", "path", cfg.ContractABIPath, "error", err)
		os.Exit(1)
	}
	contract := ethereum.NewContract(common.HexToAddress(cfg.ContractAddress), parsed, rpc, m, logger)

	// The server has no terminal to prompt on, so a keystore must come
	// with WALLET_PASSPHRASE to be usable.
	provider, err := wallet.FromConfig(cfg, chainID, nil, logger)
	if err != nil {
		logger.Error("failed to initialize wallet", "error", err)
		os.Exit(1)
	}

	// Initialize NATS relay and SSE streaming (optional)
	var publisher natspkg.Publisher
	var ssePublisher *server.SSEPublisher
	if cfg.NATSURL != "" {
		jsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer jsPublisher.Close()
		publisher = jsPublisher

		ssePublisher, err = server.NewSSEPublisher(cfg.NATSURL, contract.Address(), logger)
		if err != nil {
			logger.Error("failed to initialize SSE publisher", "error", err)
			os.Exit(1)
		}
		defer ssePublisher.Close()
	} else {
		logger.Info("NATS_URL not set, wave relay and SSE streaming disabled")
	}

	alerts := server.NewAlertBox()
	controller := feed.NewController(provider, contract, alerts, feed.Options{
		GasLimit:       cfg.GasLimit,
		FetchOnConnect: cfg.FetchOnConnect,
		Publisher:      publisher,
	}, m, logger)

	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		if err := controller.Run(ctx); err != nil {
			logger.Error("wave feed stopped", "error", err)
		}
	}()

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, controller, alerts, ssePublisher, m, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	logger.Info("server initialized, all dependencies ready",
		"wallet", provider != nil,
		"nats_url", cfg.NATSURL,
		"metrics", cfg.MetricsEnabled,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		// Stop the feed so the NewWave subscription is released
		cancel()
		<-controllerDone

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
