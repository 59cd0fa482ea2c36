package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/handler"
	"github.com/budgetforpublic/budget-api/internal/i18n"
	"github.com/budgetforpublic/budget-api/internal/infra/cache"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/infra/resilience"
	"github.com/budgetforpublic/budget-api/internal/infra/source"
	"github.com/budgetforpublic/budget-api/internal/service"
	"github.com/budgetforpublic/budget-api/internal/session"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	bundle, err := i18n.NewBundle()
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	svc := service.NewBudget(
		source.NewDirSource(source.Embedded(), "embedded"),
		cache.New[*domain.BudgetDocument](0),
		bundle,
		resilience.NewBulkhead(4),
		metrics,
		logger,
		service.Options{FirstYear: 2024, LastYear: 2025, DefaultLocale: "id-ID"},
	)
	sessions := session.NewRegistry(0, metrics, logger)
	t.Cleanup(sessions.Close)

	return handler.NewRouter(svc, sessions, metrics, logger)
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestOperationalEndpoints(t *testing.T) {
	router := newRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		rec := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	health := decode[domain.HealthStatus](t, do(t, router, http.MethodGet, "/healthz", ""))
	assert.Equal(t, "healthy", health.Status)
}

func TestNationalBudget(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/budgets/national/2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[domain.BudgetDocument](t, rec)
	assert.Equal(t, int64(2_329_200_000_000_000), doc.Revenue.Total)
	assert.Equal(t, "pendidikan", doc.Expenditure.Categories[0].Key)

	// category order survives the round trip
	assert.Less(t, strings.Index(rec.Body.String(), `"pendidikan"`), strings.Index(rec.Body.String(), `"perlindungan_sosial"`))
}

func TestNationalBudget_Errors(t *testing.T) {
	router := newRouter(t)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/budgets/national/2019", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/budgets/national/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/budgets/national/2025/realization", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/budgets/regional/villages/banten", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/budgets/regional/provinces/banten", "").Code)
}

func TestOverview(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/budgets/national/2025/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	ov := decode[domain.BudgetOverview](t, rec)
	assert.Equal(t, "2,3 PB", ov.Revenue.Value)
	assert.Equal(t, "Defisit", ov.Balance.Title)
	assert.Equal(t, "372,2 T", ov.Balance.Value)
	require.Len(t, ov.TopCategories, 5)
	assert.Equal(t, "Pendidikan", ov.TopCategories[0].Category)
	assert.Equal(t, "Kesehatan", ov.TopCategories[4].Category)

	ov = decode[domain.BudgetOverview](t, do(t, router, http.MethodGet, "/v1/budgets/national/2025/overview?locale=en-US", ""))
	assert.Equal(t, "Deficit", ov.Balance.Title)
	assert.Equal(t, "372.2 T", ov.Balance.Value)
}

func TestChart(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/budgets/national/2025/chart?type=pie", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[domain.ChartView](t, rec)
	require.Len(t, view.Points, 12)
	assert.Equal(t, "#dc2626", view.Points[0].Color)
	assert.Equal(t, "#dc2626", view.Points[10].Color)
	require.NotNil(t, view.Points[0].Percentage)

	rec = do(t, router, http.MethodGet, "/v1/budgets/national/2025/chart?type=radar", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrends_ReportsMissingYears(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/trends", "")
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[domain.TrendReport](t, rec)
	assert.Equal(t, []int{2024}, report.Missing)
	require.Len(t, report.Trends, 1)
	assert.Equal(t, int64(372_200_000_000_000), report.Trends[0].Deficit)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/trends?from=x", "").Code)
}

func TestSearch(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/search?q=pajak&year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[domain.BudgetSearchResult](t, rec).Total)

	rec = do(t, router, http.MethodGet, "/v1/search?year=2025&limit=5&sort=amount&order=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[domain.BudgetSearchResult](t, rec)
	assert.Equal(t, 12, res.Total)
	assert.Len(t, res.Items, 5)
	assert.True(t, res.HasMore)
	assert.Equal(t, "pendidikan", res.Items[0].Category)

	rec = do(t, router, http.MethodGet, "/v1/search?year=2025&page=922337203685477580", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.BudgetSearchResult](t, rec).Items)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/search?type=XYZ", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/search?min=abc", "").Code)
}

func TestMeta(t *testing.T) {
	router := newRouter(t)

	years := decode[domain.ListResponse[int]](t, do(t, router, http.MethodGet, "/v1/meta/years", ""))
	assert.Equal(t, []int{2024, 2025}, years.Data)

	regions := decode[domain.ListResponse[domain.Region]](t, do(t, router, http.MethodGet, "/v1/meta/regions", ""))
	assert.Equal(t, 6, regions.Total)

	rec := do(t, router, http.MethodGet, "/v1/meta/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[domain.SourceCatalog](t, rec)
	assert.NotEmpty(t, catalog.DataSources)
}

func TestFormatEndpoints(t *testing.T) {
	router := newRouter(t)

	res := decode[domain.FormatResult](t, do(t, router, http.MethodGet, "/v1/format/amount?amount=5000000", ""))
	assert.Equal(t, "5 Jt", res.Formatted)
	assert.Equal(t, "id-ID", res.Locale)

	res = decode[domain.FormatResult](t, do(t, router, http.MethodGet, "/v1/format/amount?amount=50000&locale=id-ID", ""))
	assert.Equal(t, "Rp50.000", res.Formatted)

	res = decode[domain.FormatResult](t, do(t, router, http.MethodGet, "/v1/format/percentage?value=25.567&decimals=2", ""))
	assert.Equal(t, "25.57%", res.Formatted)

	res = decode[domain.FormatResult](t, do(t, router, http.MethodGet, "/v1/format/growth?current=120&previous=100", ""))
	assert.Equal(t, 20.0, res.Value)
	assert.Equal(t, "20.0%", res.Formatted)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/format/amount", "").Code)
}

func TestFormatEndpoints_NonFiniteInput(t *testing.T) {
	router := newRouter(t)

	for _, target := range []string{
		"/v1/format/amount?amount=NaN",
		"/v1/format/amount?amount=-Inf",
		"/v1/format/percentage?value=Inf",
		"/v1/format/growth?current=NaN&previous=100",
		"/v1/format/growth?current=1e308&previous=1e-300",
	} {
		rec := do(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "validation error", target)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[domain.SessionView](t, rec)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, 2025, view.Selection.SelectedYear)
	assert.Equal(t, domain.ChartPie, view.Selection.ChartType)
	base := "/v1/sessions/" + view.ID

	rec = do(t, router, http.MethodPatch, base+"/selection", `{"year":2024,"chartType":"bar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[domain.SessionView](t, rec)
	assert.Equal(t, 2024, view.Selection.SelectedYear)
	assert.Equal(t, []int{2024}, view.Selection.Filters.Years)
	assert.Equal(t, domain.ChartBar, view.Selection.ChartType)

	rec = do(t, router, http.MethodPatch, base+"/selection", `{"chartType":"radar"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, base+"/filters/categories", `["pendidikan"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pendidikan"}, decode[domain.SessionView](t, rec).Selection.Filters.Categories)

	rec = do(t, router, http.MethodPatch, base+"/filters/colour", `["red"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 2024 is not published
	rec = do(t, router, http.MethodGet, base+"/budget", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	view = decode[domain.SessionView](t, do(t, router, http.MethodGet, base, ""))
	require.NotNil(t, view.Selection.Error)
	assert.False(t, view.Selection.IsLoading)

	rec = do(t, router, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[domain.SessionView](t, rec)
	assert.Equal(t, 2025, view.Selection.SelectedYear)
	assert.Nil(t, view.Selection.Error)

	rec = do(t, router, http.MethodGet, base+"/budget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sb := decode[domain.SessionBudget](t, rec)
	assert.Equal(t, "national/apbn-2025", sb.Key)
	assert.Equal(t, 2025, sb.Document.Metadata.Year)

	view = decode[domain.SessionView](t, do(t, router, http.MethodGet, base, ""))
	assert.Equal(t, []string{"national/apbn-2025"}, view.Cached)

	rec = do(t, router, http.MethodDelete, base+"/cache?key=national/apbn-2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.SessionView](t, rec).Cached)

	rec = do(t, router, http.MethodPut, base+"/filters", `{"years":[2025],"type":["APBD"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	filters := decode[domain.SessionView](t, rec).Selection.Filters
	assert.Equal(t, []domain.BudgetType{domain.BudgetTypeAPBD}, filters.Type)
	assert.Equal(t, []string{}, filters.Regions)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, base, "").Code)
}

func TestCacheMetrics(t *testing.T) {
	router := newRouter(t)

	do(t, router, http.MethodGet, "/v1/budgets/national/2025", "")
	do(t, router, http.MethodGet, "/v1/budgets/national/2025", "")

	m := decode[domain.CacheMetrics](t, do(t, router, http.MethodGet, "/v1/metrics/cache", ""))
	assert.Equal(t, int64(1), m.DocumentHits)
	assert.Equal(t, int64(1), m.DocumentMisses)
	assert.InDelta(t, 0.5, m.DocumentHitRate, 1e-9)
}
