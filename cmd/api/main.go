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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradecove/tradecove-api/internal/billing"
	"github.com/tradecove/tradecove-api/internal/config"
	"github.com/tradecove/tradecove-api/internal/handler"
	"github.com/tradecove/tradecove-api/internal/logging"
	"github.com/tradecove/tradecove-api/internal/middleware"
	"github.com/tradecove/tradecove-api/internal/repository"
	"github.com/tradecove/tradecove-api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("tradecove-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	billingClient := billing.NewClient(cfg.BillingAPIURL)

	identitySvc := service.NewIdentityService(accountRepo)
	accountSvc := service.NewAccountService(accountRepo)
	creditSvc := service.NewCreditService(creditRepo)
	billingSvc := service.NewBillingService(accountRepo, creditRepo, billingClient, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	tolerance := time.Duration(cfg.WebhookToleranceS) * time.Second
	accountHandler := handler.NewAccountHandler(accountSvc, creditSvc)
	creditHandler := handler.NewCreditHandler(creditSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	identityWebhook := handler.NewIdentityWebhookHandler(identitySvc, webhookRepo, cfg.IdentityWebhookSecret, tolerance)
	billingWebhook := handler.NewBillingWebhookHandler(billingSvc, webhookRepo, cfg.BillingWebhookSecret, tolerance)

	authn := middleware.Auth(cfg.SessionJWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/webhooks/identity", identityWebhook.Receive)
	mux.HandleFunc("POST /api/v1/webhooks/billing", billingWebhook.Receive)

	mux.Handle("GET /api/v1/me", authn(http.HandlerFunc(accountHandler.GetMe)))
	mux.Handle("PUT /api/v1/me/username", authn(http.HandlerFunc(accountHandler.SetUsername)))
	mux.Handle("GET /api/v1/usernames/availability", authn(http.HandlerFunc(accountHandler.CheckUsernameAvailability)))
	mux.Handle("PUT /api/v1/me/wallet", authn(http.HandlerFunc(accountHandler.SetWallet)))
	mux.Handle("DELETE /api/v1/me/wallet", authn(http.HandlerFunc(accountHandler.ClearWallet)))
	mux.Handle("PUT /api/v1/me/top-coins", authn(http.HandlerFunc(accountHandler.SetTopCoins)))
	mux.Handle("GET /api/v1/me/credits", authn(http.HandlerFunc(creditHandler.GetBalance)))
	mux.Handle("GET /api/v1/me/credits/check", authn(http.HandlerFunc(creditHandler.Check)))
	mux.Handle("POST /api/v1/me/credits/debit", authn(http.HandlerFunc(creditHandler.Debit)))
	mux.Handle("POST /api/v1/billing/checkout", authn(http.HandlerFunc(billingHandler.StartCheckout)))

	limiter := middleware.NewRateLimiter(
		cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		cfg.RateLimitMax, time.Duration(cfg.RateLimitWindowS)*time.Second,
	)

	chain := middleware.Tracing(
		limiter.Limit(
			middleware.Logging(
				middleware.Recovery(
					middleware.Metrics(mux),
				),
			),
		),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
