package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthCheck probes one dependency; a non-nil error marks the service degraded.
type HealthCheck func(ctx context.Context) error

type UseCases struct {
	Users         usecase.UserUseCase
	Payments      usecase.PaymentUseCase
	Coupons       usecase.CouponUseCase
	Subscriptions usecase.SubscriptionUseCase
	Billing       usecase.BillingUseCase
	Stats         usecase.StatsUseCase
	Broadcasts    usecase.BroadcastUseCase
}

type Server struct {
	users         usecase.UserUseCase
	payments      usecase.PaymentUseCase
	coupons       usecase.CouponUseCase
	subscriptions usecase.SubscriptionUseCase
	billing       usecase.BillingUseCase
	stats         usecase.StatsUseCase
	broadcasts    usecase.BroadcastUseCase

	auth   *AuthManager
	cfg    config.HTTPConfig
	checks map[string]HealthCheck
	log    *zerolog.Logger
	srv    *http.Server
}

func NewServer(uc UseCases, auth *AuthManager, cfg config.HTTPConfig, checks map[string]HealthCheck, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		users:         uc.Users,
		payments:      uc.Payments,
		coupons:       uc.Coupons,
		subscriptions: uc.Subscriptions,
		billing:       uc.Billing,
		stats:         uc.Stats,
		broadcasts:    uc.Broadcasts,
		auth:          auth,
		cfg:           cfg,
		checks:        checks,
		log:           &l,
	}
}

// Router builds the full route tree with the middleware stack applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), CORS(s.cfg.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(Timeout(s.cfg.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(s.requireUser).Post("/logout", s.handleLogout)
			r.With(s.requireUser).Get("/me", s.handleMe)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/coupons/public", s.handlePublicCoupons)
			// authenticated by the gateway signature, not by a session
			r.Post("/webhook", s.handleWebhook)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/create-order", s.handleCreateOrder)
				r.Post("/verify", s.handleVerify)
				r.Post("/validate-coupon", s.handleValidateCoupon)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/billing", s.handleBillingOverview)
			r.Get("/billing/invoice/{invoiceNumber}", s.handleInvoice)
			r.Post("/entitlements/links/check", s.handleLinkCheck)
			r.Get("/entitlements/{feature}", s.handleFeature)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireUser, s.requireAdmin)
			r.Get("/coupons", s.handleListCoupons)
			r.Post("/coupons", s.handleCreateCoupon)
			r.Patch("/coupons/{id}", s.handleUpdateCoupon)
			r.Delete("/coupons/{id}", s.handleDeleteCoupon)
			r.Get("/payments", s.handleListPayments)
			r.Post("/payments/{id}/refund", s.handleRefund)
			r.Patch("/users/{id}/plan", s.handleUpdatePlan)
			r.Get("/analytics", s.handleAnalytics)
			r.Post("/broadcasts", s.handleStartBroadcast)
			r.Get("/broadcasts/{id}", s.handleGetBroadcast)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Code: "NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})
	return r
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.log.Warn().Interface("failed", failed).Msg("health check degraded")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
