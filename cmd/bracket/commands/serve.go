package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonhee/bracket/internal/api"
	"github.com/wonhee/bracket/internal/api/handlers"
	"github.com/wonhee/bracket/internal/engine"
	"github.com/wonhee/bracket/internal/feed"
	"github.com/wonhee/bracket/internal/pending"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/risk"
	"github.com/wonhee/bracket/internal/riskconfig"
	"github.com/wonhee/bracket/internal/scheduler"
	"github.com/wonhee/bracket/internal/scheduler/jobs"
	"github.com/wonhee/bracket/internal/store"
	"github.com/wonhee/bracket/pkg/config"
	"github.com/wonhee/bracket/pkg/database"
	"github.com/wonhee/bracket/pkg/httputil"
	"github.com/wonhee/bracket/pkg/logger"
	"github.com/wonhee/bracket/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bracket engine API server",
	Long: `Starts the HTTP API server.

This command:
- Loads orders from the server of record
- Starts the market data feed (websocket or REST poller)
- Schedules background reconciliation
- Serves the order, pending-batch and risk endpoints

Endpoints:
  GET    /health                      - Health check
  GET    /api/orders                  - List orders
  POST   /api/orders                  - Create a bracket order
  PUT    /api/orders/{id}/legs/{leg}  - Commit a single-leg edit
  POST   /api/pending/apply           - Apply staged drags
  POST   /api/risk/position-size      - Size a position

Example:
  go run ./cmd/bracket serve
  go run ./cmd/bracket serve --port 8090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Bracket Engine ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port":    cfg.Port,
		"env":     cfg.Env,
		"persist": cfg.Persist.Mode,
	}).Info("Initializing bracket engine")

	// 3. Connect to Redis (optional, no-op when disabled)
	redisClient, err := redis.New(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "bracket")

	// 4. Select the server-of-record backend
	backend, cleanup, err := buildPersistence(cfg, log)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// 5. Session state
	st := store.New()
	buffer := pending.New(st, backend, log)

	// 6. Market data feed
	candles := feed.NewCache(cfg.Feed.CandleTTL, cache, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wsFeed *feed.WSSubscriber
	switch {
	case cfg.Feed.WSURL != "":
		wsFeed = feed.NewWSSubscriber(cfg.Feed.WSURL, cfg.Feed.Symbols, candles, log)
		if err := wsFeed.Start(ctx); err != nil {
			return fmt.Errorf("start candle feed: %w", err)
		}
		defer wsFeed.Stop()
	case cfg.Feed.RESTURL != "":
		poller := feed.NewPoller(
			httputil.New(log), cfg.Feed.RESTURL, cfg.Feed.Symbols,
			cfg.Feed.PollInterval, cfg.Feed.PollRate, candles, log,
		)
		go poller.Run(ctx)
	default:
		log.Warn("No market feed configured, market drafts skip price checks")
	}

	// 7. Engine
	eng := engine.New(st, buffer, backend, candles, log)

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	orders, err := eng.LoadOrders(loadCtx, "")
	loadCancel()
	if err != nil {
		return fmt.Errorf("initial order load: %w", err)
	}
	log.WithField("count", len(orders)).Info("Initial order load complete")

	// 8. Risk settings and presets
	settings := risk.NewSettingsStore(risk.Settings{
		TotalBalance:   cfg.Risk.DefaultBalance,
		DefaultRiskPct: cfg.Risk.DefaultRiskPct,
	}, cache, log)

	presets := riskconfig.Default()
	if cfg.Risk.PresetsPath != "" {
		presets, err = riskconfig.Load(cfg.Risk.PresetsPath)
		if err != nil {
			return fmt.Errorf("load risk presets: %w", err)
		}
	}

	// 9. Handlers and router
	orderHandler := handlers.NewOrderHandler(eng, log)
	pendingHandler := handlers.NewPendingHandler(eng, log)
	riskHandler := handlers.NewRiskHandler(settings, presets.Presets, log)

	router := api.NewRouter(orderHandler, pendingHandler, riskHandler, log)
	server := api.New(cfg, log, router)

	// 10. Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewReconcileJob(eng, "", "*/30 * * * * *", log)); err != nil {
		return fmt.Errorf("schedule reconcile job: %w", err)
	}
	if err := sched.AddJob(jobs.NewCandleCleanupJob(candles, "0 * * * * *", log)); err != nil {
		return fmt.Errorf("schedule candle cleanup job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// 11. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// buildPersistence selects the server-of-record implementation from
// config. The returned cleanup closes backend resources and may be nil.
func buildPersistence(cfg *config.Config, log *logger.Logger) (persist.API, func(), error) {
	switch cfg.Persist.Mode {
	case "http":
		client := httputil.New(log).WithRateLimit(cfg.Persist.RateLimit)
		return persist.NewHTTPClient(client, cfg.Persist.BaseURL, cfg.Persist.APIKey, log), nil, nil

	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		repo := persist.NewPostgresRepo(db.Pool)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}

		log.Info("Connected to database")
		return repo, db.Close, nil

	case "memory":
		log.Warn("Using in-memory persistence, orders will not survive restarts")
		return persist.NewFake(), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown persistence mode %q", cfg.Persist.Mode)
}
