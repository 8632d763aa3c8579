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
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cryptodw/internal/config"
	"cryptodw/internal/connection"
	"cryptodw/internal/database"
	"cryptodw/internal/metrics"
	"cryptodw/internal/model"
	"cryptodw/internal/stats"
	"cryptodw/internal/version"
	"cryptodw/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/ingestor.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// A .env file is optional; real environments set variables directly.
	godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingestor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"feed_url", cfg.Feed.URL,
		"products", cfg.Feed.Products,
		"channel", cfg.Feed.Channel,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connect to the warehouse before touching the feed; there is no
	// point subscribing when nothing can be persisted.
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := stats.NewCollector()

	sink := writer.NewBronzeSink(pool)
	scheduler := writer.NewScheduler(writer.Config{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
		WriteTimeout:  cfg.Writers.WriteTimeout,
	}, sink, st, logger)

	manager := connection.NewManager(connection.ManagerConfig{
		URL:                cfg.Feed.URL,
		Products:           cfg.Feed.Products,
		Channel:            cfg.Feed.Channel,
		SubscribeTimeout:   cfg.Feed.SubscribeTimeout,
		ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
		PingInterval:       cfg.Feed.PingInterval,
		PingTimeout:        cfg.Feed.PingTimeout,
		WriteTimeout:       cfg.Feed.WriteTimeout,
		BufferSize:         cfg.Feed.BufferSize,
	}, scheduler, st, logger)

	monitor := metrics.New(st, manager.State)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHTTPHandler(cfg.Metrics.Path, pool, manager, st, monitor),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("ingest loop error", "error", err)
	}

	logger.Info("shutting down...")

	// Both loops have exited; drain whatever is still buffered.
	scheduler.Flush(context.Background())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	snap := st.Snapshot()
	logger.Info("ingestor stopped",
		"received", snap.Received,
		"inserted", snap.Inserted,
		"errors", snap.Errors,
	)
}

// createHTTPHandler serves the health check, a stats snapshot and the
// Prometheus exposition.
func createHTTPHandler(metricsPath string, pool *pgxpool.Pool, manager *connection.Manager, st *stats.Collector, monitor *metrics.Monitor) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		state := manager.State()
		health.Components["feed"] = state.String()
		if state != model.StateSubscribed && health.Status == "healthy" {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		snap := st.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{
			"received": snap.Received,
			"inserted": snap.Inserted,
			"errors":   snap.Errors,
			"dropped":  snap.Dropped,
		})
	})

	mux.Handle(metricsPath, monitor.Handler())

	return mux
}
