package main

import (
	"context"
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

	"github.com/nexusgrid/energy-engine/internal/analytics"
	"github.com/nexusgrid/energy-engine/internal/ledger"
	"github.com/nexusgrid/energy-engine/internal/metrics"
	"github.com/nexusgrid/energy-engine/internal/store"
	"github.com/nexusgrid/energy-engine/internal/trading"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Transaction archive ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	wsHub := trading.NewWSHub()
	go wsHub.Run()

	// --- Trading platform ---
	market := analytics.New()
	led := ledger.New(st, market)
	platform := trading.New(led, market, nil, wsHub)
	if raw := os.Getenv("LAYOUT_REFRESH"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			slog.Error("invalid LAYOUT_REFRESH", "value", raw, "err", err)
			os.Exit(1)
		}
		platform.SetLayoutInterval(interval)
	}
	platform.Start()
	defer platform.Close()

	// --- HTTP router ---
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
		w.Write([]byte(`{"status":"ok","service":"energy-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for the live transaction feed.
		r.Get("/ws", wsHub.HandleWS)

		// Registry and network topology.
		r.Post("/participants", platform.HandleRegister)
		r.Get("/participants/{participantID}", platform.HandleGetParticipant)
		r.Get("/participants/{participantID}/transactions", platform.HandleParticipantTransactions)
		r.Get("/sellers", platform.HandleListSellers)
		r.Get("/buyers", platform.HandleListBuyers)
		r.Post("/links", platform.HandleLink)
		r.Delete("/links", platform.HandleUnlink)
		r.Get("/network", platform.HandleSnapshot)
		r.Get("/network/paths", platform.HandlePaths)
		r.Get("/network/clusters", platform.HandleClusters)

		// Trade execution and the ledger feed.
		r.Post("/trade", platform.HandleTrade)
		r.Get("/transactions", platform.HandleTransactions)

		// Analytics and suggestions.
		r.Get("/stats", platform.HandleStats)
		r.Get("/suggestions", platform.HandleSuggestions)
		r.Get("/history/prices", platform.HandlePriceHistory)
		r.Get("/history/volumes", platform.HandleVolumeHistory)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("energy-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: stop accepting requests, then stop the layout
	// refresher and wait for it to exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down energy-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	platform.Close()
	fmt.Println("energy-engine stopped")
}
