package api

import (
	"log/slog"
	"net/http"
	"time"

	"lending-engine/internal/api/handler"
	mw "lending-engine/internal/api/middleware"
	"lending-engine/internal/config"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/participation"
	"lending-engine/internal/domain/payment"

	_ "lending-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles the domain collaborators the router wires handlers to.
type Services struct {
	Loans          loan.LoanService
	Ledger         *ledger.Engine
	Payments       *payment.Processor
	Participations participation.Service
}

func SetupRouter(services Services, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupLoanRoutes(router, services, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupLoanRoutes(router *chi.Mux, services Services, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(services.Loans, services.Ledger, logger)
	paymentHandler := handler.NewPaymentHandler(services.Payments, logger)
	participationHandler := handler.NewParticipationHandler(services.Participations, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.ApplyForLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Post("/review", loanHandler.Review)
			r.Post("/approve", loanHandler.Approve)
			r.Post("/reject", loanHandler.Reject)
			r.Post("/fund", loanHandler.Fund)
			r.Post("/disburse", loanHandler.Disburse)
			r.Get("/minimum-due", loanHandler.GetMinimumDue)
			r.Get("/total-due", loanHandler.GetTotalDue)
			r.Post("/payments", paymentHandler.SubmitPayment)
			r.Post("/payments/{movementID}/reconcile", paymentHandler.ReconcilePayment)
			r.Post("/participations", participationHandler.CreateParticipation)
			r.Get("/participations", participationHandler.GetFundingProgress)
		})
	})
}
