package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, svc *adjudication.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Server {
	handler := NewHandler(svc, repo, cache, bus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(MetricsMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Operational endpoints (no identity required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)

		// FNOL intake
		r.Post("/fnol", handler.SaveFNOL)
		r.Get("/fnol", handler.ListClaims)
		r.Get("/fnol/{id}", handler.GetClaim)

		// Evaluation
		r.Post("/claims/evaluate", handler.EvaluateClaim)
		r.Post("/fnol/{id}/fraud-detection", handler.RunFraudDetection)
		r.Get("/fnol/{id}/evaluation", handler.GetEvaluation)
		r.Post("/fnol/{id}/damage-assessment", handler.DamageAssessment)

		// Review
		r.Get("/fraud/claims", handler.ListFraudClaims)
		r.Get("/claim-statuses", handler.ListClaimStatuses)

		// Master data
		r.Route("/masters", func(r chi.Router) {
			r.Route("/rules", handler.ruleMasters().routes("fraud_rules"))
			r.Route("/damage-codes", handler.damageMasters().routes("damage_config"))
			r.Route("/claim-types", handler.claimTypeMasters().routes("claim_config"))
			r.Route("/pricing", handler.pricingMasters().routes("price_config"))
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(s.router, "claimdesk"),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
