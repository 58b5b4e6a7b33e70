// PhishPlay - Phishing Defense Training Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/phishplay/phishplay/internal/api"
	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/config"
	"github.com/phishplay/phishplay/internal/domain"
	"github.com/phishplay/phishplay/internal/engine"
	"github.com/phishplay/phishplay/internal/identity"
	"github.com/phishplay/phishplay/internal/middleware"
	"github.com/phishplay/phishplay/internal/progress"
	"github.com/phishplay/phishplay/internal/store"
	"github.com/phishplay/phishplay/internal/telemetry"
)

const sweepInterval = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Load the scenario catalog.
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	} else {
		cat, err = catalog.LoadDefault()
	}
	if err != nil {
		slog.Error("Failed to load scenario catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Scenario catalog loaded", "themes", len(cat.Themes()))

	// Telemetry sinks.
	eventLog, err := telemetry.NewLogger(telemetry.LogConfig{
		Enabled:       cfg.EventLog.Enabled,
		Dir:           cfg.EventLog.Dir,
		GlobalEnabled: cfg.EventLog.GlobalEnabled,
		GlobalPath:    cfg.EventLog.GlobalPath,
		QueueSize:     cfg.EventLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize event logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := eventLog.Close(); closeErr != nil {
			slog.Error("Failed to close event logger", "error", closeErr)
		}
	}()

	collector := telemetry.NewCollector(cfg.CollectorURL, logger)
	if collector.Enabled() {
		slog.Info("Telemetry collector configured", "url", cfg.CollectorURL)
	}

	// Progress feed for live session updates.
	feed := progress.NewFeed()
	wsHandler := progress.NewWebSocketHandler(feed, cfg.IsDevelopment())

	// Engine.
	mgr := engine.NewManager(cat, cfg.SessionLength)
	mgr.OnScored(func(userID string, out engine.Outcome, snap engine.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		phase := domain.PhasePre
		if user, userErr := repo.GetUser(ctx, userID); userErr == nil && user != nil {
			phase = user.EffectivePhase()
		}

		ev := telemetry.NewEvent(telemetry.Event{
			UserID:           userID,
			ScenarioID:       out.ScenarioID,
			Phase:            phase,
			Action:           out.Action,
			ElapsedMS:        out.ElapsedMS,
			RiskScore:        out.RiskScore,
			Correct:          out.Correct,
			SelectedElements: snap.SelectedElements,
			Points:           out.Points,
		})

		// Counters are committed; everything below is best-effort.
		if err := repo.SaveEvent(ctx, ev); err != nil {
			slog.Warn("Failed to persist telemetry event", "error", err, "event_id", ev.EventID)
		}
		if err := repo.AddPoints(ctx, userID, out.Points); err != nil {
			slog.Warn("Failed to add points", "error", err, "user_id", userID)
		}
		eventLog.Log(ev)
		collector.Report(ev)
		feed.Push(userID, snap)
	})
	mgr.OnTerminal(func(userID string, summary domain.PhaseSummary) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		phase := domain.PhasePre
		if user, userErr := repo.GetUser(ctx, userID); userErr == nil && user != nil {
			phase = user.EffectivePhase()
		}
		if err := repo.SavePhaseSummary(ctx, userID, phase, summary); err != nil {
			slog.Error("Failed to save phase summary", "error", err, "user_id", userID, "phase", phase)
		} else {
			slog.Info("Phase summary saved", "user_id", userID, "phase", phase,
				"accuracy", summary.Accuracy, "click_rate", summary.ClickRate)
		}
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, mgr, cat)
	healthHandler := api.NewHealthHandler(repo)
	trainingHandler := api.NewTrainingHandler(baseHandler, eventLog)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{cfg.FrontendURL}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	trainingHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/progress", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sweep idle sessions so abandoned runs don't accumulate.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := mgr.SweepIdle(cfg.SessionTTL); removed > 0 {
					slog.Info("Swept idle sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
