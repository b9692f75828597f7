package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the local store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// db may be nil when the wallet runs on an in-memory store.
func NewRouter(wallet *service.Wallet, sessions *service.SessionManager, db Pinger, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(db, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/summary", metricsSummaryHandler(metrics, sessions))

		// =============================================
		// Presentation shell
		// =============================================
		r.Get("/tabs/{tab}", tabHandler(wallet))

		// =============================================
		// Profile
		// =============================================
		r.Get("/profile", getProfileHandler(wallet))
		r.Patch("/profile", updateProfileHandler(wallet, logger))

		// =============================================
		// Contacts
		// =============================================
		r.Get("/contacts", listContactsHandler(wallet))
		r.Post("/contacts", addContactHandler(wallet, logger))
		r.Put("/contacts/{contactId}", updateContactHandler(wallet, logger))
		r.Delete("/contacts/{contactId}", deleteContactHandler(wallet, logger))

		// =============================================
		// Transactions
		// =============================================
		r.Get("/transactions", listTransactionsHandler(wallet))
		r.Delete("/transactions", clearTransactionsHandler(wallet, logger))
		r.Post("/transactions/delete", deleteTransactionsHandler(wallet, logger))
		r.Get("/transactions/{txId}", getTransactionHandler(wallet, logger))
		r.Delete("/transactions/{txId}", deleteTransactionHandler(wallet, logger))

		// =============================================
		// Scan
		// =============================================
		r.Post("/scan", scanHandler(wallet, logger))

		// =============================================
		// Payment sessions
		// =============================================
		r.Post("/payments/sessions", openSessionHandler(sessions, logger))
		r.Route("/payments/session", func(r chi.Router) {
			r.Use(SessionAuthMiddleware(sessions, logger))

			r.Get("/", sessionAction(sessions, logger, "GET /v1/payments/session", func(s *service.PaymentSession, _ *http.Request) (domain.SessionSnapshot, error) {
				return s.Snapshot(), nil
			}))
			r.Put("/amount", setAmountHandler(sessions, logger))
			r.Post("/proceed", sessionAction(sessions, logger, "POST /v1/payments/session/proceed", func(s *service.PaymentSession, _ *http.Request) (domain.SessionSnapshot, error) {
				return s.Proceed()
			}))
			r.Post("/pin", pressDigitHandler(sessions, logger))
			r.Delete("/pin", sessionAction(sessions, logger, "DELETE /v1/payments/session/pin", func(s *service.PaymentSession, _ *http.Request) (domain.SessionSnapshot, error) {
				return s.Backspace()
			}))
			r.Post("/pin/cancel", sessionAction(sessions, logger, "POST /v1/payments/session/pin/cancel", func(s *service.PaymentSession, _ *http.Request) (domain.SessionSnapshot, error) {
				return s.CancelPIN()
			}))
			r.Post("/pay-again", sessionAction(sessions, logger, "POST /v1/payments/session/pay-again", func(s *service.PaymentSession, _ *http.Request) (domain.SessionSnapshot, error) {
				return s.PayAgain()
			}))
			r.Delete("/", doneHandler(sessions, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "upi-bfa", Status: "healthy", LastChecked: now},
		}

		status := http.StatusOK
		overall := "healthy"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := db.Ping(ctx)
			sh := domain.ServiceHealth{
				Name:        "kvstore",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("kvstore ping failed", zap.Error(err))
				sh.Status = "unhealthy"
				sh.Error = err.Error()
				overall = "unhealthy"
				status = http.StatusServiceUnavailable
			}
			services = append(services, sh)
		}

		writeJSON(w, status, domain.HealthStatus{Status: overall, Services: services})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics, sessions *service.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Summary(sessions.Active()))
	}
}
