package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/service"
	"github.com/budgetforpublic/budget-api/internal/session"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.Budget, sessions *session.Registry, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, sessions))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Budget documents
		// =============================================
		r.Route("/budgets", func(r chi.Router) {
			national := nationalLoader(svc)
			r.Get("/national/{year}", documentHandler(national, logger))
			r.Get("/national/{year}/overview", overviewHandler(svc, national, logger))
			r.Get("/national/{year}/chart", chartHandler(svc, national, logger))

			realization := realizationLoader(svc)
			r.Get("/national/{year}/realization", documentHandler(realization, logger))

			regional := regionalLoader(svc)
			r.Get("/regional/{kind}/{region}", documentHandler(regional, logger))
			r.Get("/regional/{kind}/{region}/overview", overviewHandler(svc, regional, logger))
			r.Get("/regional/{kind}/{region}/chart", chartHandler(svc, regional, logger))
		})

		// =============================================
		// 2. Analysis
		// =============================================
		r.Get("/trends", trendsHandler(svc, logger))
		r.Get("/compare", compareHandler(svc, logger))
		r.Get("/search", searchHandler(svc, logger))

		// =============================================
		// 3. Metadata
		// =============================================
		r.Get("/meta/years", yearsHandler(svc))
		r.Get("/meta/regions", regionsHandler(svc))
		r.Get("/meta/sources", sourcesHandler(svc, logger))

		// =============================================
		// 4. Formatting
		// =============================================
		r.Get("/format/amount", formatAmountHandler(svc, logger))
		r.Get("/format/percentage", formatPercentageHandler(logger))
		r.Get("/format/growth", formatGrowthHandler(logger))

		// =============================================
		// 5. Sessions
		// =============================================
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", createSessionHandler(sessions))
			r.Get("/{id}", getSessionHandler(sessions, logger))
			r.Delete("/{id}", deleteSessionHandler(sessions, logger))
			r.Patch("/{id}/selection", patchSelectionHandler(sessions, logger))
			r.Put("/{id}/filters", putFiltersHandler(sessions, logger))
			r.Patch("/{id}/filters/{key}", patchFilterHandler(sessions, logger))
			r.Post("/{id}/reset", resetSessionHandler(sessions, logger))
			r.Get("/{id}/budget", sessionBudgetHandler(svc, sessions, logger))
			r.Delete("/{id}/cache", clearSessionCacheHandler(sessions, logger))
		})

		// =============================================
		// 6. Metrics
		// =============================================
		r.Get("/metrics/cache", cacheMetricsHandler(metrics))
	})

	return r
}

func healthzHandler(svc *service.Budget, sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "budget-api", Status: "healthy", LastChecked: now},
		}

		start := time.Now()
		_, err := svc.DataSources(ctx)
		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "budget-data", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
		})

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:         overallStatus,
			Services:       services,
			ActiveSessions: sessions.Len(),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
