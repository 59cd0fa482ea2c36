package source

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/port"
)

// FallbackSource serves from primary and, when primary fails, from fallback.
// Invalid requests are never retried against the fallback.
type FallbackSource struct {
	primary  port.DocumentSource
	fallback port.DocumentSource
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFallbackSource creates a new FallbackSource.
func NewFallbackSource(primary, fallback port.DocumentSource, metrics *observability.Metrics, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{primary: primary, fallback: fallback, metrics: metrics, logger: logger}
}

// FetchDocument implements port.DocumentSource.
func (s *FallbackSource) FetchDocument(ctx context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error) {
	doc, err := s.primary.FetchDocument(ctx, level, identifier)
	if err == nil || isValidation(err) {
		return doc, err
	}

	fb, fbErr := s.fallback.FetchDocument(ctx, level, identifier)
	if fbErr != nil {
		return nil, err
	}
	s.served(domain.CacheKey(level, identifier), err)
	return fb, nil
}

// FetchSources implements port.DocumentSource.
func (s *FallbackSource) FetchSources(ctx context.Context) (*domain.SourceCatalog, error) {
	cat, err := s.primary.FetchSources(ctx)
	if err == nil {
		return cat, nil
	}

	fb, fbErr := s.fallback.FetchSources(ctx)
	if fbErr != nil {
		return nil, err
	}
	s.served(sourcesPath, err)
	return fb, nil
}

func (s *FallbackSource) served(key string, cause error) {
	s.logger.Warn("serving fallback data",
		zap.String("key", key),
		zap.Error(cause),
	)
	if s.metrics != nil {
		s.metrics.IncrFallback()
	}
}

func isValidation(err error) bool {
	var v *domain.ErrValidation
	return errors.As(err, &v)
}
