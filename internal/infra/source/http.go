package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/resilience"
)

// HTTPSource fetches documents from a static file server.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewHTTPSource creates a new HTTPSource rooted at baseURL.
func NewHTTPSource(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *HTTPSource {
	return &HTTPSource{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
	}
}

// FetchDocument fetches {base}/{level}/{identifier}.json with retry, circuit
// breaker, and tracing.
func (s *HTTPSource) FetchDocument(ctx context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error) {
	ctx, span := tracer.Start(ctx, "HTTPSource.FetchDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget.level", string(level)),
		attribute.String("budget.identifier", identifier),
	)

	rel, err := documentPath(level, identifier)
	if err != nil {
		return nil, err
	}
	return fetchJSON[domain.BudgetDocument](ctx, s, rel, domain.CacheKey(level, identifier))
}

// FetchSources fetches {base}/meta/sources.json.
func (s *HTTPSource) FetchSources(ctx context.Context) (*domain.SourceCatalog, error) {
	ctx, span := tracer.Start(ctx, "HTTPSource.FetchSources")
	defer span.End()

	return fetchJSON[domain.SourceCatalog](ctx, s, sourcesPath, sourcesPath)
}

func fetchJSON[T any](ctx context.Context, s *HTTPSource, rel, id string) (*T, error) {
	url := s.baseURL + "/" + rel

	out, err := resilience.Execute(ctx, s.cb, s.cfg, func() (*T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, &domain.ErrNotFound{Resource: "budget data", ID: id}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("budget data returned status %d", resp.StatusCode)
		}

		var v T
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", rel, err)
		}
		return &v, nil
	})
	if err != nil {
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return nil, open
		}
		if isTimeout(err) {
			return nil, &domain.ErrTimeout{Operation: "fetch " + rel}
		}
		return nil, &domain.ErrExternalService{Service: "budget-data", Err: err}
	}
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
