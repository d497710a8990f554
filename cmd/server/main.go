package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/config"
	"github.com/shardsim/paper-engine/internal/feed"
	"github.com/shardsim/paper-engine/internal/metrics"
	"github.com/shardsim/paper-engine/internal/prediction"
	"github.com/shardsim/paper-engine/internal/risk"
	"github.com/shardsim/paper-engine/internal/store"
	"github.com/shardsim/paper-engine/internal/trade"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	// Background context for feed, sweeper, and websocket work.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := cfg.Storage.DatabaseURL; dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := cfg.Storage.RedisURL; redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid redis URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL())
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL())
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price feed ---
	var source feed.Source
	switch cfg.Feed.Source {
	case "binance":
		binance := feed.NewBinanceSource(cfg.Feed.BinanceWSBase)
		go binance.Run(ctx)
		source = binance
	default:
		source = feed.NewSimulatedSource(cfg.StartPrices(), cfg.Floors())
	}

	priceFeed := feed.New(source, cfg.StartPrices(), cfg.Floors())
	priceFeed.SeedHistory(cfg.Feed.SeedSamples, time.Hour)
	go priceFeed.Run(ctx, cfg.PollInterval())
	slog.Info("price feed started", "source", source.Name(), "interval", cfg.PollInterval())

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()

	// --- Engine, manager, sweeper ---
	limiter := risk.NewLimiter(
		decimal.NewFromFloat(cfg.Risk.MaxPerAsset),
		decimal.NewFromFloat(cfg.Risk.MaxInvested),
	)
	engine := trade.NewEngine(st, limiter)
	manager := prediction.NewManager(st, wsHub)

	var oracle prediction.Oracle
	switch cfg.Oracle.Kind {
	case "price":
		oracle = prediction.NewPriceOracle(priceFeed)
	default:
		oracle = prediction.NewRandomOracle(cfg.Oracle.WinRate)
	}

	sweeper := prediction.NewSweeper(st, manager, oracle, cfg.Maturity(), cfg.SweepInterval())
	go sweeper.Run(ctx)
	slog.Info("resolution sweeper started",
		"oracle", cfg.Oracle.Kind,
		"maturity", cfg.Maturity(),
		"interval", cfg.SweepInterval(),
	)

	// --- HTTP service ---
	svc := trade.NewService(st, engine, manager, priceFeed, wsHub, cfg.StartingBalance())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"paper-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time trade/resolution events.
		r.Get("/ws", wsHub.HandleWS)
		svc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("paper-engine listening", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down paper-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("paper-engine stopped")
}

// setupLogger configures the default slog handler from config.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
