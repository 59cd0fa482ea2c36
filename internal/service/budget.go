package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/i18n"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/infra/resilience"
	"github.com/budgetforpublic/budget-api/internal/port"
)

var tracer = otel.Tracer("service/budget")

// DefaultRegions are the regions with published APBD documents.
var DefaultRegions = []domain.Region{
	{ID: "dki-jakarta", Name: "DKI Jakarta", Type: "province"},
	{ID: "jawa-barat", Name: "Jawa Barat", Type: "province"},
	{ID: "jawa-tengah", Name: "Jawa Tengah", Type: "province"},
	{ID: "jawa-timur", Name: "Jawa Timur", Type: "province"},
	{ID: "banten", Name: "Banten", Type: "province"},
	{ID: "sumatera-utara", Name: "Sumatera Utara", Type: "province"},
}

// Options configures the budget service.
type Options struct {
	FirstYear     int
	LastYear      int
	DefaultLocale string
	Regions       []domain.Region
}

// Budget loads budget documents and turns them into presentation views.
type Budget struct {
	source   port.DocumentSource
	cache    port.Cache[*domain.BudgetDocument]
	bundle   *i18n.Bundle
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	group  singleflight.Group
	opts   Options
	locale string
}

// NewBudget creates the budget service with all dependencies injected.
func NewBudget(
	source port.DocumentSource,
	cache port.Cache[*domain.BudgetDocument],
	bundle *i18n.Bundle,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) *Budget {
	if opts.Regions == nil {
		opts.Regions = DefaultRegions
	}
	locale := opts.DefaultLocale
	if locale == "" {
		locale = "id-ID"
	}
	return &Budget{
		source:   source,
		cache:    cache,
		bundle:   bundle,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		locale:   locale,
	}
}

// Locale returns locale, or the configured default when empty.
func (b *Budget) Locale(locale string) string {
	if locale == "" {
		return b.locale
	}
	return locale
}

// Document returns a document from the shared cache, loading it once on a
// miss even when many callers ask at the same time.
func (b *Budget) Document(ctx context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error) {
	ctx, span := tracer.Start(ctx, "Budget.Document")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget.level", string(level)),
		attribute.String("budget.identifier", identifier),
	)

	if !level.Valid() {
		return nil, &domain.ErrValidation{Field: "level", Message: "must be national or regional"}
	}
	if err := domain.ValidateIdentifier(identifier); err != nil {
		return nil, err
	}

	key := domain.CacheKey(level, identifier)
	if doc, ok := b.cache.Get(key); ok {
		b.metrics.IncrCacheHit(observability.CacheDocument)
		return doc, nil
	}
	b.metrics.IncrCacheMiss(observability.CacheDocument)

	start := time.Now()
	v, err, shared := b.group.Do(key, func() (any, error) {
		doc, err := b.source.FetchDocument(context.WithoutCancel(ctx), level, identifier)
		if err != nil {
			return nil, err
		}
		b.cache.Set(key, doc)
		return doc, nil
	})
	b.metrics.RecordRequestDuration("document", time.Since(start))
	if err != nil {
		if !resilience.IsPermanent(err) {
			b.metrics.IncrSourceError(string(level))
			b.logger.Error("failed to load budget document",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))
	return v.(*domain.BudgetDocument), nil
}

// National returns the APBN of a year.
func (b *Budget) National(ctx context.Context, year int) (*domain.BudgetDocument, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return b.Document(ctx, domain.LevelNational, domain.NationalIdentifier(year))
}

// Realization returns the realization report of a year.
func (b *Budget) Realization(ctx context.Context, year int) (*domain.BudgetDocument, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return b.Document(ctx, domain.LevelNational, domain.RealizationIdentifier(year))
}

// Regional returns the APBD of a province or city.
func (b *Budget) Regional(ctx context.Context, kind domain.RegionKind, region string) (*domain.BudgetDocument, error) {
	if !kind.Valid() {
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be provinces or cities"}
	}
	return b.Document(ctx, domain.LevelRegional, domain.RegionalIdentifier(kind, region))
}

// InvalidateCache drops one cached document, or all of them when key is empty.
func (b *Budget) InvalidateCache(key string) {
	if key == "" {
		b.cache.Clear()
		return
	}
	b.cache.Delete(key)
}

// Prefetch warms the cache for a document in the background. Failures are
// only logged.
func (b *Budget) Prefetch(ctx context.Context, level domain.Level, identifier string) {
	go func() {
		if _, err := b.Document(context.WithoutCancel(ctx), level, identifier); err != nil {
			b.logger.Debug("prefetch failed",
				zap.String("key", domain.CacheKey(level, identifier)),
				zap.Error(err),
			)
		}
	}()
}

// AvailableYears lists the years with published national documents.
func (b *Budget) AvailableYears() []int {
	years := make([]int, 0, b.opts.LastYear-b.opts.FirstYear+1)
	for y := b.opts.FirstYear; y <= b.opts.LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// AvailableRegions lists the regions with published APBD documents.
func (b *Budget) AvailableRegions() []domain.Region {
	return append([]domain.Region(nil), b.opts.Regions...)
}

// DataSources returns the catalog of data publishers and the methodology.
func (b *Budget) DataSources(ctx context.Context) (*domain.SourceCatalog, error) {
	ctx, span := tracer.Start(ctx, "Budget.DataSources")
	defer span.End()

	v, err, _ := b.group.Do("meta/sources", func() (any, error) {
		return b.source.FetchSources(context.WithoutCancel(ctx))
	})
	if err != nil {
		b.metrics.IncrSourceError("meta")
		return nil, fmt.Errorf("loading data sources: %w", err)
	}
	return v.(*domain.SourceCatalog), nil
}

// regionKind maps a region to the directory its document lives in.
func (b *Budget) regionKind(region string) domain.RegionKind {
	for _, r := range b.opts.Regions {
		if r.ID == region && r.Type == "city" {
			return domain.RegionCities
		}
	}
	return domain.RegionProvinces
}

func validateYear(year int) error {
	if year < 1945 || year > 9999 {
		return &domain.ErrValidation{Field: "year", Message: fmt.Sprintf("invalid year %d", year)}
	}
	return nil
}
