package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/rickgao/peg-stabilizer/internal/authz"
	"github.com/rickgao/peg-stabilizer/internal/config"
	"github.com/rickgao/peg-stabilizer/internal/controller"
	"github.com/rickgao/peg-stabilizer/internal/database"
	"github.com/rickgao/peg-stabilizer/internal/feed"
	"github.com/rickgao/peg-stabilizer/internal/history"
	"github.com/rickgao/peg-stabilizer/internal/ledger"
	"github.com/rickgao/peg-stabilizer/internal/oracle"
	"github.com/rickgao/peg-stabilizer/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/stabilizer.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	logger.Info("starting stabilizer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"target_price", cfg.Stabilizer.TargetPrice,
		"sources", len(cfg.Sources),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Authorization table. With no identities configured every caller is
	// allowed, which only makes sense for local development.
	var auth authz.Authorizer
	if len(cfg.Authz.Admins) == 0 && len(cfg.Authz.Operators) == 0 {
		logger.Warn("no admins or operators configured, authorization disabled")
		auth = authz.AllowAll{}
	} else {
		auth = authz.NewTable(cfg.Authz.Admins, cfg.Authz.Operators)
	}
	adminCaller := firstOr(cfg.Authz.Admins, "system")
	operatorCaller := firstOr(cfg.Authz.Operators, adminCaller)

	// Ledger genesis
	ldgr := ledger.New(cfg.Ledger.MaxSupply, logger)
	if err := ldgr.Genesis(cfg.Ledger.InitialSupply, cfg.Ledger.InitialHolder); err != nil {
		logger.Error("ledger genesis failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger initialized",
		"supply", ldgr.TotalSupply(),
		"holder", cfg.Ledger.InitialHolder,
	)

	// Oracle registry seeded from config
	registry := oracle.NewRegistry(oracle.Config{MinOracles: cfg.Oracle.MinOracles}, auth, logger)
	for _, src := range cfg.Sources {
		err := registry.AddSource(adminCaller, src.ID, src.Weight, src.Heartbeat.Std(), src.Scale, src.Description)
		if err != nil {
			logger.Error("failed to register source", "source", src.ID, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("oracle sources registered", "count", len(cfg.Sources))

	// Rebase history, optionally persisted to PostgreSQL
	log := history.NewLog(logger)

	var pool *pgxpool.Pool
	var writer *history.Writer
	if cfg.History.Persist {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		queue := history.NewQueue()
		log.AttachSink(queue)

		writer = history.NewWriter(history.WriterConfig{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval.Std(),
		}, queue, pool, logger)
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start history writer", "error", err)
			os.Exit(1)
		}

		logger.Info("history persistence enabled")
	}

	// Stabilization controller
	ctrl := controller.New(controller.Config{
		TargetPrice:    cfg.Stabilizer.TargetPrice,
		RebaseCooldown: cfg.Stabilizer.RebaseCooldown.Std(),
		MinConfidence:  cfg.Stabilizer.MinConfidence,
		MaxRebasePct:   cfg.Stabilizer.MaxRebasePct,
	}, registry, ldgr, log, auth, logger)

	// Quote feeds
	var feeds *feed.Manager
	if len(cfg.Feeds.Endpoints) > 0 {
		feeds = feed.NewManager(feed.ManagerConfig{
			Endpoints:          cfg.Feeds.Endpoints,
			ReconnectBaseDelay: cfg.Feeds.ReconnectBaseDelay.Std(),
			ReconnectMaxDelay:  cfg.Feeds.ReconnectMaxDelay.Std(),
			ReadTimeout:        cfg.Feeds.ReadTimeout.Std(),
		}, registry, logger)
		feeds.Start(ctx)
	} else {
		logger.Warn("no feed endpoints configured, expecting quotes via external submission")
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Instance.ID, ctrl, ldgr, registry, log, feeds),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Rebase trigger loop. The controller never self-schedules; this
	// daemon is the external trigger.
	go runTrigger(ctx, ctrl, operatorCaller, cfg.Trigger.Interval.Std(), logger)

	logger.Info("stabilizer running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
		"trigger_interval", cfg.Trigger.Interval,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if feeds != nil {
		feeds.Stop()
	}
	if writer != nil {
		writer.Stop(shutdownCtx)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("stabilizer stopped")
}

// runTrigger attempts a rebase on every tick. Not-ready and oracle
// errors are expected between cooldown windows and are logged at debug.
func runTrigger(ctx context.Context, ctrl *controller.Controller, caller string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec, err := ctrl.Rebase(caller)
			switch {
			case err != nil:
				logger.Debug("rebase attempt skipped", "error", err)
			case rec.Halted:
				logger.Error("rebase halted, circuit breaker engaged",
					"epoch", rec.Epoch,
					"deviation_ppm", rec.DeviationPpm,
				)
			default:
				logger.Info("rebase executed",
					"epoch", rec.Epoch,
					"band", rec.Band.String(),
					"supply_delta", rec.SupplyDelta,
					"new_supply", rec.NewSupply,
				)
			}
		}
	}
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	instanceID string,
	ctrl *controller.Controller,
	ldgr *ledger.Ledger,
	registry *oracle.Registry,
	log *history.Log,
	feeds *feed.Manager,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := ctrl.State()

		health := struct {
			Status     string                 `json:"status"`
			Instance   string                 `json:"instance"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Instance:   instanceID,
			Components: make(map[string]interface{}),
		}

		health.Components["ledger"] = map[string]interface{}{
			"supply":  ldgr.TotalSupply(),
			"holders": ldgr.HolderCount(),
		}

		health.Components["controller"] = map[string]interface{}{
			"rebase_count":    state.RebaseCount,
			"last_rebase_us":  state.LastRebaseTime,
			"circuit_breaker": state.CircuitBreakerActive,
			"epochs":          log.Len(),
		}
		if state.CircuitBreakerActive {
			health.Status = "halted"
		}

		health.Components["oracle"] = map[string]interface{}{
			"active_sources": len(registry.ActiveSources()),
		}

		if feeds != nil {
			stats := feeds.Stats()
			health.Components["feeds"] = map[string]interface{}{
				"frames_received": stats.FramesReceived,
				"submit_errors":   stats.SubmitErrors,
				"reconnects":      stats.Reconnects,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/preview", func(w http.ResponseWriter, r *http.Request) {
		p := ctrl.PreviewRebase()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"executable":       p.Executable,
			"reason":           p.Reason,
			"price":            p.Price,
			"confidence":       p.Confidence,
			"deviation_ppm":    p.DeviationPpm,
			"band":             p.Band.String(),
			"would_halt":       p.WouldHalt,
			"supply_delta":     p.SupplyDelta,
			"projected_supply": p.ProjectedSupply,
		})
	})

	return mux
}
