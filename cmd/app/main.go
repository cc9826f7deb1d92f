// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain/ports/adapter"
	mailAdapters "linkbio-billing/internal/infra/adapters/mail"
	payAdapters "linkbio-billing/internal/infra/adapters/payment"
	"linkbio-billing/internal/infra/api"
	"linkbio-billing/internal/infra/db/mongodb"
	"linkbio-billing/internal/infra/invoice"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/infra/metrics"
	red "linkbio-billing/internal/infra/redis"
	"linkbio-billing/internal/infra/sched"
	"linkbio-billing/internal/infra/worker"
	"linkbio-billing/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway and mailer when unconfigured)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		logging.New(config.LogConfig{}, true).Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
		if cfg.Auth.JWTSecret == "" {
			cfg.Auth.JWTSecret = "dev-only-jwt-secret"
		}
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- MongoDB ----
	mongoClient, db, err := mongodb.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("mongo indexes")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	cache := red.NewCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	userRepo := mongodb.NewUserRepo(db)
	paymentRepo := mongodb.NewPaymentRepo(db)
	couponRepo := mongodb.NewCouponRepo(db)
	sessionRepo := mongodb.NewSessionRepo(db)
	broadcastRepo := mongodb.NewBroadcastRepo(db)

	// ---- Adapters ----
	gateway, err := payAdapters.NewGateway(cfg.Payment, cfg.Runtime.Dev, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}
	mailer, err := mailAdapters.NewMailer(cfg.Mail, cfg.Runtime.Dev, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailer")
	}
	renderer := invoice.NewPDFRenderer()
	issuer := adapter.Issuer{
		Name:    cfg.Billing.CompanyName,
		Address: cfg.Billing.CompanyAddress,
		Email:   cfg.Billing.SupportEmail,
	}
	pricing := usecase.Pricing{
		ProPrice:  cfg.Billing.ProPrice,
		MinCharge: cfg.Billing.MinCharge,
		Currency:  cfg.Billing.Currency,
	}

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Broadcast.Workers, 0, logger)
	pool.Start(ctx)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, sessionRepo, cfg.Auth.SessionTTL, logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, logger)
	couponUC := usecase.NewCouponUseCase(couponRepo, gateway, cache, rateLimiter, pricing, usecase.CouponOptions{
		RateLimit: cfg.Billing.CouponRateLimit,
		CacheTTL:  cfg.Billing.PublicCouponsTTL,
	}, logger)
	notifUC := usecase.NewNotificationUseCase(userRepo, mailer, renderer, usecase.NotificationOptions{
		LeadDays: cfg.Billing.ExpiryAlertDays,
		RenewURL: cfg.Billing.FrontendURL + "/billing",
		Issuer:   issuer,
	}, logger)
	paymentUC := usecase.NewPaymentUseCase(userRepo, paymentRepo, couponUC, notifUC, gateway, pricing, logger)
	billingUC := usecase.NewBillingUseCase(userRepo, paymentRepo, renderer, issuer, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, paymentRepo, logger)
	broadcastUC := usecase.NewBroadcastUseCase(userRepo, broadcastRepo, mailer, pool, usecase.BroadcastOptions{
		BatchSize:  cfg.Broadcast.BatchSize,
		BatchPause: cfg.Broadcast.BatchPause,
	}, logger)

	// ---- Scheduler ----
	scheduler, err := sched.New(cfg.Scheduler, locker, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	expiry := sched.NewExpiryWorker(subUC, logger)
	alerts := sched.NewNotificationWorker(notifUC, logger)
	if err := scheduler.Add("downgrade_expired", cfg.Scheduler.ExpiryCheckCron, expiry.Run); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	if err := scheduler.Add("expiry_alerts", cfg.Scheduler.AlertCron, alerts.Run); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	scheduler.Start(ctx)

	// ---- HTTP server ----
	srv := api.NewServer(api.UseCases{
		Users:         userUC,
		Payments:      paymentUC,
		Coupons:       couponUC,
		Subscriptions: subUC,
		Billing:       billingUC,
		Stats:         statsUC,
		Broadcasts:    broadcastUC,
	}, api.NewAuthManager(cfg.Auth), cfg.HTTP, map[string]api.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": redisClient.Ping,
	}, logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
	cancel()
	pool.Stop()
	logger.Info().Msg("shutdown complete")
}
