package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/i18n"
	"github.com/budgetforpublic/budget-api/internal/infra/cache"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/infra/resilience"
	"github.com/budgetforpublic/budget-api/internal/service"
)

// --- Mocks ---

type mockSource struct {
	docs    map[string]*domain.BudgetDocument
	catalog *domain.SourceCatalog
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockSource) FetchDocument(_ context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	key := domain.CacheKey(level, identifier)
	doc, ok := m.docs[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "budget data", ID: key}
	}
	return doc, nil
}

func (m *mockSource) FetchSources(_ context.Context) (*domain.SourceCatalog, error) {
	m.calls.Add(1)
	if m.catalog == nil {
		return nil, &domain.ErrNotFound{Resource: "budget data", ID: "meta/sources.json"}
	}
	return m.catalog, nil
}

// --- Fixtures ---

func ptr[T any](v T) *T { return &v }

func nationalDoc(year int, revenue, expenditure int64, cats domain.Categories) *domain.BudgetDocument {
	return &domain.BudgetDocument{
		Metadata: domain.BudgetMetadata{
			Year: year, Type: domain.BudgetTypeAPBN, Region: "National",
			LastUpdated: "2025-01-20", Source: "Kemenkeu RI", Currency: "IDR",
			Population: ptr(int64(275_000_000)),
		},
		Revenue:     domain.BudgetRevenue{Total: revenue},
		Expenditure: domain.BudgetExpenditure{Total: expenditure, Categories: cats},
	}
}

func apbn2025() *domain.BudgetDocument {
	doc := nationalDoc(2025, 2_329_200_000_000_000, 2_701_400_000_000_000, domain.Categories{
		{Key: "pendidikan", Amount: 724_300_000_000_000},
		{Key: "perlindungan_sosial", Amount: 503_200_000_000_000},
		{Key: "kesehatan", Amount: 218_500_000_000_000},
		{Key: "pertahanan", Amount: 165_000_000_000_000},
		{Key: "infrastruktur", Amount: 324_600_000_000_000},
		{Key: "ekonomi", Amount: 285_400_000_000_000},
		{Key: "keamanan", Amount: 125_800_000_000_000},
	})
	doc.Deficit = ptr(int64(372_200_000_000_000))
	return doc
}

func regionalDoc(name string, year int, revenue, expenditure, population int64) *domain.BudgetDocument {
	return &domain.BudgetDocument{
		Metadata: domain.BudgetMetadata{
			Year: year, Type: domain.BudgetTypeAPBD, Region: name, Currency: "IDR",
			Population: ptr(population), Level: "province",
		},
		Revenue: domain.BudgetRevenue{Total: revenue},
		Expenditure: domain.BudgetExpenditure{Total: expenditure, Categories: domain.Categories{
			{Key: "pendidikan", Amount: expenditure / 2},
			{Key: "kesehatan", Amount: expenditure / 2},
		}},
	}
}

func newService(t *testing.T, src *mockSource) (*service.Budget, *observability.Metrics) {
	t.Helper()
	bundle, err := i18n.NewBundle()
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	svc := service.NewBudget(
		src,
		cache.New[*domain.BudgetDocument](0),
		bundle,
		resilience.NewBulkhead(4),
		metrics,
		zap.NewNop(),
		service.Options{FirstYear: 2020, LastYear: 2025, DefaultLocale: "id-ID"},
	)
	return svc, metrics
}

// --- Tests ---

func TestDocument_CachesAfterFirstLoad(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{"national/apbn-2025": apbn2025()}}
	svc, metrics := newService(t, src)

	for i := 0; i < 3; i++ {
		doc, err := svc.National(context.Background(), 2025)
		require.NoError(t, err)
		assert.Equal(t, 2025, doc.Metadata.Year)
	}

	assert.Equal(t, int32(1), src.calls.Load())
	snap := metrics.GetCacheSnapshot()
	assert.Equal(t, int64(2), snap.DocumentHits)
	assert.Equal(t, int64(1), snap.DocumentMisses)
}

func TestDocument_ConcurrentMissesLoadOnce(t *testing.T) {
	src := &mockSource{
		docs:  map[string]*domain.BudgetDocument{"national/apbn-2025": apbn2025()},
		delay: 50 * time.Millisecond,
	}
	svc, _ := newService(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.National(context.Background(), 2025)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestDocument_RejectsInvalidIdentifier(t *testing.T) {
	src := &mockSource{}
	svc, _ := newService(t, src)

	_, err := svc.Regional(context.Background(), domain.RegionProvinces, "../../etc/passwd")

	var validation *domain.ErrValidation
	assert.True(t, errors.As(err, &validation), "got %v", err)
	assert.Equal(t, int32(0), src.calls.Load())

	_, err = svc.Regional(context.Background(), domain.RegionKind("villages"), "banten")
	assert.True(t, errors.As(err, &validation), "got %v", err)

	_, err = svc.National(context.Background(), 12)
	assert.True(t, errors.As(err, &validation), "got %v", err)
}

func TestDocument_NotFound(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{}}
	svc, metrics := newService(t, src)

	_, err := svc.Realization(context.Background(), 2024)

	var notFound *domain.ErrNotFound
	require.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, "national/realisasi-2024", notFound.ID)
	assert.Equal(t, int64(0), metrics.GetCacheSnapshot().SourceErrors)
}

func TestDocument_SourceErrorIsCounted(t *testing.T) {
	src := &mockSource{err: &domain.ErrExternalService{Service: "budget-data", Err: errors.New("boom")}}
	svc, metrics := newService(t, src)

	_, err := svc.National(context.Background(), 2025)

	var ext *domain.ErrExternalService
	assert.True(t, errors.As(err, &ext))
	assert.Equal(t, int64(1), metrics.GetCacheSnapshot().SourceErrors)
}

func TestInvalidateCache(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{"national/apbn-2025": apbn2025()}}
	svc, _ := newService(t, src)

	_, _ = svc.National(context.Background(), 2025)
	svc.InvalidateCache("national/apbn-2025")
	_, _ = svc.National(context.Background(), 2025)
	svc.InvalidateCache("")
	_, _ = svc.National(context.Background(), 2025)

	assert.Equal(t, int32(3), src.calls.Load())
}

func TestOverview_Indonesian(t *testing.T) {
	svc, _ := newService(t, &mockSource{})

	ov := svc.Overview(apbn2025(), "id-ID")

	assert.Equal(t, "Pendapatan", ov.Revenue.Title)
	assert.Equal(t, "2,3 PB", ov.Revenue.Value)
	assert.Equal(t, "2,7 PB", ov.Expenditure.Value)
	assert.True(t, ov.IsDeficit)
	assert.Equal(t, "Defisit", ov.Balance.Title)
	assert.Equal(t, int64(372_200_000_000_000), ov.Balance.Amount)
	assert.Equal(t, "372,2 T", ov.Balance.Value)
	assert.Equal(t, "16.0% dari pendapatan", ov.Balance.Description)

	require.Len(t, ov.TopCategories, 5)
	keys := make([]string, 0, 5)
	for _, c := range ov.TopCategories {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"pendidikan", "perlindungan_sosial", "infrastruktur", "ekonomi", "kesehatan"}, keys)
	assert.Equal(t, 1, ov.TopCategories[0].Rank)
	assert.Equal(t, "Pendidikan", ov.TopCategories[0].Category)
	assert.Equal(t, "724,3 T", ov.TopCategories[0].Value)
	assert.Equal(t, "26.8%", ov.TopCategories[0].Share)

	assert.Equal(t, "20 Januari 2025", ov.Metadata.LastUpdated)
	assert.Equal(t, "275.000.000", ov.Metadata.Population)
}

func TestOverview_EnglishSurplus(t *testing.T) {
	svc, _ := newService(t, &mockSource{})
	doc := nationalDoc(2020, 2_000_000_000_000, 1_500_000_000_000, nil)
	doc.Metadata.Population = nil

	ov := svc.Overview(doc, "en-US")

	assert.False(t, ov.IsDeficit)
	assert.Equal(t, "Surplus", ov.Balance.Title)
	assert.Equal(t, "500 M", ov.Balance.Value)
	assert.Equal(t, "25.0% of revenue", ov.Balance.Description)
	assert.Equal(t, "January 20, 2025", ov.Metadata.LastUpdated)
	assert.Empty(t, ov.Metadata.Population)
	assert.Empty(t, ov.TopCategories)
}

func TestChart(t *testing.T) {
	svc, _ := newService(t, &mockSource{})

	view, err := svc.Chart(apbn2025(), domain.ChartBar, "en")
	require.NoError(t, err)
	assert.Equal(t, domain.ChartBar, view.Type)
	require.Len(t, view.Points, 7)
	assert.Equal(t, "Education", view.Points[0].Label)
	assert.Equal(t, "#dc2626", view.Points[0].Color)

	view, err = svc.Chart(apbn2025(), "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ChartPie, view.Type)
	assert.Equal(t, "id-ID", view.Locale)

	view, err = svc.Chart(apbn2025(), domain.ChartSankey, "id")
	require.NoError(t, err)
	assert.Empty(t, view.Points)
	assert.Len(t, view.Records, 7)

	_, err = svc.Chart(apbn2025(), domain.ChartType("radar"), "id")
	var validation *domain.ErrValidation
	assert.True(t, errors.As(err, &validation))
}

func TestTrends_SkipsMissingYears(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{
		"national/apbn-2022": nationalDoc(2022, 100, 120, nil),
		"national/apbn-2024": nationalDoc(2024, 120, 150, nil),
	}}
	svc, _ := newService(t, src)

	report, err := svc.Trends(context.Background(), 2022, 2024, "id-ID")
	require.NoError(t, err)

	assert.Equal(t, []int{2023}, report.Missing)
	require.Len(t, report.Trends, 2)
	assert.Equal(t, int64(20), report.Trends[0].Deficit)
	assert.Equal(t, 0.0, report.Trends[0].Growth.Revenue)
	assert.InDelta(t, 20.0, report.Trends[1].Growth.Revenue, 1e-9)
	assert.InDelta(t, 25.0, report.Trends[1].Growth.Expenditure, 1e-9)
	assert.InDelta(t, 50.0, report.Trends[1].Growth.Deficit, 1e-9)
	assert.Equal(t, "20.0%", report.Trends[1].Formatted.RevenueGrowth)
}

func TestTrends_Validation(t *testing.T) {
	svc, _ := newService(t, &mockSource{})
	var validation *domain.ErrValidation

	_, err := svc.Trends(context.Background(), 2025, 2020, "")
	assert.True(t, errors.As(err, &validation))

	_, err = svc.Trends(context.Background(), 1950, 2025, "")
	assert.True(t, errors.As(err, &validation))
}

func TestTrends_NothingLoaded(t *testing.T) {
	svc, _ := newService(t, &mockSource{docs: map[string]*domain.BudgetDocument{}})

	_, err := svc.Trends(context.Background(), 0, 0, "")

	var notFound *domain.ErrNotFound
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestCompare(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{
		"regional/provinces/banten":      regionalDoc("Banten", 2025, 10_000, 12_000, 12),
		"regional/provinces/dki-jakarta": regionalDoc("DKI Jakarta", 2025, 80_000, 80_000, 10),
	}}
	svc, _ := newService(t, src)

	got, err := svc.Compare(context.Background(), "", []string{"banten", "dki-jakarta"}, 2025, "id-ID")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "dki-jakarta", got[0].Region)
	assert.Equal(t, 8000.0, got[0].PerCapita)
	assert.Equal(t, 100.0, got[0].RevenueRatio)
	assert.Equal(t, "banten", got[1].Region)
	assert.Equal(t, 1000.0, got[1].PerCapita)
	assert.Equal(t, "Rp12.000", got[1].Formatted)
}

func TestCompare_YearMismatchAndMissing(t *testing.T) {
	src := &mockSource{docs: map[string]*domain.BudgetDocument{
		"regional/provinces/banten": regionalDoc("Banten", 2024, 1, 1, 1),
	}}
	svc, _ := newService(t, src)
	var notFound *domain.ErrNotFound

	_, err := svc.Compare(context.Background(), domain.RegionProvinces, []string{"banten"}, 2025, "")
	assert.True(t, errors.As(err, &notFound), "got %v", err)

	_, err = svc.Compare(context.Background(), domain.RegionProvinces, []string{"jawa-timur"}, 0, "")
	assert.True(t, errors.As(err, &notFound), "got %v", err)

	var validation *domain.ErrValidation
	_, err = svc.Compare(context.Background(), domain.RegionProvinces, nil, 0, "")
	assert.True(t, errors.As(err, &validation))
}

func TestDataSources(t *testing.T) {
	src := &mockSource{catalog: &domain.SourceCatalog{DataSources: []domain.DataSource{{ID: "kemenkeu"}}}}
	svc, _ := newService(t, src)

	cat, err := svc.DataSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kemenkeu", cat.DataSources[0].ID)
}

func TestAvailableYearsAndRegions(t *testing.T) {
	svc, _ := newService(t, &mockSource{})

	assert.Equal(t, []int{2020, 2021, 2022, 2023, 2024, 2025}, svc.AvailableYears())
	regions := svc.AvailableRegions()
	require.Len(t, regions, 6)
	assert.Equal(t, "dki-jakarta", regions[0].ID)
}
