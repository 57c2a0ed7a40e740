package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famigo/internal/config"
	"famigo/internal/database"
	"famigo/internal/handlers"
	"famigo/internal/logger"
	"famigo/internal/metrics"
	"famigo/internal/service"
	"famigo/internal/validation"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New("famigo", cfg.LogLevel)

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	log.WithField("type", cfg.DatabaseType).Info("database connection established")

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	log.Info("migrations completed")

	m := metrics.New("server")
	validate := validation.New()

	// Initialize services
	emailService, err := service.NewEmailService(context.Background(), cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize email service")
	}

	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	familyService := service.NewFamilyService(db, emailService, log)
	walletService := service.NewWalletService(db)
	taskService := service.NewTaskService(db, walletService)
	rewardService := service.NewRewardService(db, walletService, cfg.RewardAutoApprove)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, log)
	authHandler := handlers.NewAuthHandler(authService, validate, log)
	familyHandler := handlers.NewFamilyHandler(familyService, validate, log)
	taskHandler := handlers.NewTaskHandler(taskService, validate, log)
	rewardHandler := handlers.NewRewardHandler(rewardService, validate, log)
	walletHandler := handlers.NewWalletHandler(walletService, validate, log)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /auth/token", authHandler.Token)
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	// Authenticated routes
	mux.HandleFunc("GET /me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /me/tasks", middleware.RequireAuth(taskHandler.ListMine))
	mux.HandleFunc("GET /me/points", middleware.RequireAuth(walletHandler.MyPoints))

	mux.HandleFunc("POST /families", middleware.RequireAuth(familyHandler.Create))
	mux.HandleFunc("GET /families/my", middleware.RequireAuth(familyHandler.ListMine))
	mux.HandleFunc("GET /families/{id}", middleware.RequireAuth(familyHandler.Get))
	mux.HandleFunc("POST /families/{id}/invite", middleware.RequireAuth(familyHandler.CreateInvite))
	mux.HandleFunc("POST /families/join/secret/{code}", middleware.RequireAuth(familyHandler.JoinBySecret))
	mux.HandleFunc("POST /families/join/invite/{code}", middleware.RequireAuth(familyHandler.JoinByInvite))
	mux.HandleFunc("DELETE /families/invites/{code}", middleware.RequireAuth(familyHandler.RevokeInvite))

	mux.HandleFunc("POST /families/{id}/tasks", middleware.RequireAuth(taskHandler.Create))
	mux.HandleFunc("GET /families/{id}/tasks", middleware.RequireAuth(taskHandler.ListForFamily))
	mux.HandleFunc("GET /tasks/{id}", middleware.RequireAuth(taskHandler.Get))
	mux.HandleFunc("PATCH /tasks/{id}", middleware.RequireAuth(taskHandler.Update))
	mux.HandleFunc("POST /tasks/{id}/assign", middleware.RequireAuth(taskHandler.Assign))
	mux.HandleFunc("POST /tasks/{id}/complete", middleware.RequireAuth(taskHandler.Complete))
	mux.HandleFunc("GET /tasks/{id}/assignments", middleware.RequireAuth(taskHandler.ListAssignments))

	mux.HandleFunc("POST /families/{id}/rewards", middleware.RequireAuth(rewardHandler.Create))
	mux.HandleFunc("GET /families/{id}/rewards", middleware.RequireAuth(rewardHandler.ListForFamily))
	mux.HandleFunc("GET /families/{id}/redemptions", middleware.RequireAuth(rewardHandler.ListRedemptions))
	mux.HandleFunc("DELETE /rewards/{id}", middleware.RequireAuth(rewardHandler.Deactivate))
	mux.HandleFunc("POST /rewards/{id}/redeem", middleware.RequireAuth(rewardHandler.Redeem))
	mux.HandleFunc("POST /redemptions/{id}/approve", middleware.RequireAuth(rewardHandler.Approve))
	mux.HandleFunc("POST /redemptions/{id}/deliver", middleware.RequireAuth(rewardHandler.Deliver))
	mux.HandleFunc("POST /redemptions/{id}/reject", middleware.RequireAuth(rewardHandler.Reject))
	mux.HandleFunc("POST /redemptions/{id}/cancel", middleware.RequireAuth(rewardHandler.Cancel))

	mux.HandleFunc("GET /wallets/{id}/transactions", middleware.RequireAuth(walletHandler.ListTransactions))
	mux.HandleFunc("POST /members/{id}/wallet/adjust", middleware.RequireAuth(walletHandler.Adjust))

	// Operational endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	handler := logger.Middleware(log, metrics.Middleware(m, mux))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background sweep: expire overdue tasks, drop stale refresh tokens and
	// record DB pool stats
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.TaskSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				expired, err := taskService.ExpireOverdueTasks()
				if err != nil {
					log.WithError(err).Error("task deadline sweep failed")
				} else if expired > 0 {
					log.WithField("count", expired).Info("expired overdue tasks")
				}

				removed, err := authService.CleanupExpiredTokens()
				if err != nil {
					log.WithError(err).Error("refresh token cleanup failed")
				} else if removed > 0 {
					log.WithField("count", removed).Info("removed expired refresh tokens")
				}

				m.RecordDBPoolStats(db.Stats())
			case <-sweepDone:
				return
			}
		}
	}()

	// Start server in a goroutine so shutdown can be handled below
	go func() {
		log.WithField("port", cfg.ServerPort).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}

	log.Info("server stopped")
}
