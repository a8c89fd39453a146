package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/efreitasn/papertrade/internal/config"
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/feed"
	"github.com/efreitasn/papertrade/internal/handler"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/efreitasn/papertrade/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the paper-trading HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return err
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Snapshot store by driver.
	var snapshots store.SnapshotStore
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		snapshots = store.NewRedis(client, cfg.RedisPrefix)
	default:
		snapshots, err = store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store", slog.String("error", err.Error()))
			return err
		}
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logger.Error("snapshot store close error", slog.String("error", err.Error()))
		}
	}()

	// Domain.
	symbols := domain.NewSymbolRegistry(cfg.Symbols)

	// In-memory stores.
	sessionStore := store.NewSessionStore()
	tradeStore := store.NewTradeStore()

	// Price feed.
	feedClient := feed.NewClient(cfg.FeedBaseURL, symbols, cfg.FeedTimeout, logger)
	priceFeed := feed.New(feedClient, symbols, feed.Options{
		Interval:     cfg.FeedInterval,
		BackoffBase:  cfg.FeedBackoffBase,
		BackoffMax:   cfg.FeedBackoffMax,
		RetryCeiling: cfg.FeedRetryCeiling,
	}, logger)

	// Engine and persistence.
	executor := engine.NewExecutor(symbols, tradeStore)
	persister := store.NewPersister(snapshots, cfg.FlushInterval, logger)

	// Services.
	portfolioSvc := service.NewPortfolioService(
		sessionStore,
		tradeStore,
		snapshots,
		persister,
		executor,
		priceFeed,
		cfg.StartingCash,
		logger,
	)
	marketSvc := service.NewMarketService(priceFeed, symbols)

	// Rebuild in-memory state from persisted snapshots.
	if err := portfolioSvc.Restore(context.Background()); err != nil {
		logger.Error("failed to restore sessions", slog.String("error", err.Error()))
		return err
	}

	// Router.
	router := handler.NewRouter(portfolioSvc, marketSvc, logger)

	// Start background goroutines with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	priceFeed.Start(ctx)
	persister.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for SIGINT/SIGTERM or a server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	// Graceful shutdown: stop HTTP server, cancel context (stops the feed
	// loop and flushes the persister's final drain).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	// No new orders can arrive once the server is down; wait for the
	// persister's final drain before the store closes. All flushing stays
	// on the persister's own goroutine.
	persister.Wait()

	logger.Info("server stopped")
	return nil
}
