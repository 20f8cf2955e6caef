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
	"github.com/go-chi/cors"

	"github.com/costlens/backend/internal/config"
	"github.com/costlens/backend/internal/container"
	"github.com/costlens/backend/internal/correlation"
	"github.com/costlens/backend/internal/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	ctr, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()

	r.Use(correlation.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", correlation.HeaderName},
		ExposedHeaders:   []string{"Link", correlation.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := ctr.DB().PingContext(ctx); err != nil {
			handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy", "database": "unavailable",
			})
			return
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	costHandler := handler.NewCostHandler(ctr.CostRepository(), ctr.Engine(), logger)
	anomalyHandler := handler.NewAnomalyHandler(ctr.CostRepository(), ctr.AnomalyRepository(), ctr.Engine(), ctr.Validator(), logger)
	forecastHandler := handler.NewForecastHandler(ctr.CostRepository(), ctr.Engine(), ctr.Validator(), logger)
	budgetHandler := handler.NewBudgetHandler(ctr.BudgetRepository(), ctr.CostRepository(), ctr.Engine(), ctr.Validator(), logger)
	insightHandler := handler.NewInsightHandler(ctr.CostRepository(), ctr.Engine(), logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/costs", func(r chi.Router) {
			r.Post("/upload", costHandler.Upload)
			r.Get("/trends", costHandler.GetTrends)
			r.Get("/filter-options", costHandler.GetFilterOptions)
		})

		r.Route("/anomalies", func(r chi.Router) {
			r.Get("/", anomalyHandler.List)
			r.Get("/summary", anomalyHandler.GetSummary)
			r.Post("/detect", anomalyHandler.Detect)
			r.Patch("/{id}/status", anomalyHandler.UpdateStatus)
		})

		r.Get("/forecasts", forecastHandler.GetReport)

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", budgetHandler.List)
			r.Post("/", budgetHandler.Create)
			r.Patch("/{id}", budgetHandler.Update)
			r.Delete("/{id}", budgetHandler.Delete)
			r.Get("/{id}/status", budgetHandler.GetStatus)
		})

		r.Get("/insights", insightHandler.Get)

		r.Get("/providers", func(w http.ResponseWriter, req *http.Request) {
			results := make([]map[string]interface{}, 0)
			for _, p := range ctr.ProviderRegistry().All() {
				health := p.Health(req.Context())
				results = append(results, map[string]interface{}{
					"name":    p.Name(),
					"healthy": health.Healthy,
					"message": health.Message,
				})
			}
			handler.WriteJSON(w, http.StatusOK, results)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctr.Start(ctx); err != nil {
		logger.Error("failed to start background jobs", "error", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := ctr.Stop(shutdownCtx); err != nil {
			logger.Error("container shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("CostLens API server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
