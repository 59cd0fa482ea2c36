package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/service"
)

// GET /v1/meta/years
func yearsHandler(svc *service.Budget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		years := svc.AvailableYears()
		writeJSON(w, http.StatusOK, domain.ListResponse[int]{Data: years, Total: len(years)})
	}
}

// GET /v1/meta/regions
func regionsHandler(svc *service.Budget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regions := svc.AvailableRegions()
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Region]{Data: regions, Total: len(regions)})
	}
}

// GET /v1/meta/sources
func sourcesHandler(svc *service.Budget, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog, err := svc.DataSources(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, catalog)
	}
}

// GET /v1/metrics/cache
func cacheMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCacheSnapshot())
	}
}
