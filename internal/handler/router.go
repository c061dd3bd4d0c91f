package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/wager-ledger-go/internal/port"
	"github.com/boddenberg/wager-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// idempotency may be nil to disable Idempotency-Key replay.
func NewRouter(
	ledger *service.Ledger,
	idempotency port.Cache[*CachedResponse],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ledger, bulkhead))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/metrics/ledger", ledgerMetricsHandler(metrics))

	// --- Ledger API ---
	r.Group(func(r chi.Router) {
		if bulkhead != nil {
			r.Use(BulkheadMiddleware(bulkhead, logger))
		}

		r.Get("/user/{id}", getAccountHandler(ledger, logger))

		// Mutating routes
		r.Group(func(r chi.Router) {
			if idempotency != nil {
				r.Use(IdempotencyMiddleware(idempotency, metrics, logger))
			}
			r.Post("/user", createAccountHandler(ledger, logger))
			r.Put("/user/{id}/credit", depositHandler(ledger, logger))
			r.Post("/game", wagerHandler(ledger, logger))
			r.Post("/game/", wagerHandler(ledger, logger))
		})
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(ledger *service.Ledger, bulkhead *resilience.Bulkhead) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "ledger-api", Status: "healthy", LastChecked: now},
		}

		if ledger != nil {
			services = append(services, domain.ServiceHealth{
				Name:        "account-table",
				Status:      "healthy",
				Detail:      fmt.Sprintf("%d accounts", ledger.CountAccounts()),
				LastChecked: now,
			})
		}
		if bulkhead != nil {
			services = append(services, domain.ServiceHealth{
				Name:        "bulkhead",
				Status:      "healthy",
				Detail:      fmt.Sprintf("%d in flight", bulkhead.InFlight()),
				LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   "healthy",
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
