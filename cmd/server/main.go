// Package main is the entry point for the FixCity report server.
// It provides a REST API for citizen issue reporting with automatic
// duplicate detection, priority escalation, and report lifecycle
// management for municipal officers and field technicians.
//
// Architecture:
//   - Incoming reports are matched against open reports in the same
//     category by geographic proximity and description similarity
//   - Duplicates are merged into a canonical report; repeated reports
//     escalate its priority instead of creating new records
//   - Recently resolved issues that resurface reopen the original report
//   - Status transitions are enforced by a lifecycle state machine
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/auth"
	"github.com/fixcity/report-server/internal/config"
	"github.com/fixcity/report-server/internal/database"
	"github.com/fixcity/report-server/internal/dupdetect"
	"github.com/fixcity/report-server/internal/handlers"
	"github.com/fixcity/report-server/internal/middleware"
	"github.com/fixcity/report-server/internal/services"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting FixCity Report Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"dup_radius_m", cfg.Duplicate.MaxDistanceMeters,
		"dup_min_similarity", cfg.Duplicate.MinTextSimilarity,
	)

	ctx := context.Background()

	// Initialize database connection pool
	db, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize redis (OTP store & rate limiting)
	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	// Initialize services
	engine := dupdetect.NewScorer(cfg.Duplicate)
	notifier := services.NewNotifier(sugar)
	activitySvc := services.NewActivityService(db, sugar)
	reportSvc := services.NewReportService(db, engine, notifier, activitySvc, sugar)
	analyticsSvc := services.NewAnalyticsService(db, sugar)
	technicianSvc := services.NewTechnicianService(db, sugar)

	otpStore := auth.NewOTPStore(rdb, time.Duration(cfg.OTPTTLMinutes)*time.Minute)
	authSvc := auth.NewService(db, otpStore, cfg.JWTSecret, cfg.MasterOTP, sugar)

	// Initialize handlers
	reportHandler := handlers.NewReportHandler(reportSvc, activitySvc, sugar)
	activityHandler := handlers.NewActivityHandler(activitySvc, sugar)
	authHandler := handlers.NewAuthHandler(authSvc, sugar)
	technicianHandler := handlers.NewTechnicianHandler(technicianSvc, sugar)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsSvc, sugar)
	healthHandler := handlers.NewHealthHandler(db, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting (redis fixed window, fails open)
	r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		// Auth endpoints (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", authHandler.SendOTP)
			r.Post("/verify-otp", authHandler.VerifyOTP)
			r.Post("/officer-login", authHandler.OfficerLogin)
			r.Post("/technician-login", authHandler.TechnicianLogin)
		})

		// Report endpoints
		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWTSecret))
			r.Post("/", reportHandler.Submit)
			r.Get("/", reportHandler.List)
			r.Get("/{id}", reportHandler.Get)
			r.Get("/{id}/activity", activityHandler.ByReport)

			// Only officers and technicians can move reports through
			// the lifecycle
			r.With(middleware.RequireRole(cfg.JWTSecret, "officer", "technician")).
				Patch("/{id}", reportHandler.Update)
		})

		// Technician directory (officer-only, used for assignment)
		r.Route("/technicians", func(r chi.Router) {
			r.Use(middleware.RequireRole(cfg.JWTSecret, "officer"))
			r.Get("/", technicianHandler.List)
			r.Get("/{id}", technicianHandler.Get)
		})

		// Analytics endpoints
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/stats", analyticsHandler.Stats) // public dashboard numbers

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(cfg.JWTSecret, "officer"))
				r.Get("/trends", analyticsHandler.Trends)
				r.Get("/categories", analyticsHandler.Categories)
				r.Get("/activity/recent", activityHandler.Recent)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
