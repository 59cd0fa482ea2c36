package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"go.opentelemetry.io/otel/attribute"

	"github.com/budgetforpublic/budget-api/internal/domain"
)

// DirSource reads documents from a file tree such as os.DirFS(DATA_DIR) or
// the embedded fallback data.
type DirSource struct {
	fsys fs.FS
	name string
}

// NewDirSource creates a DirSource. name is used in errors and spans.
func NewDirSource(fsys fs.FS, name string) *DirSource {
	return &DirSource{fsys: fsys, name: name}
}

// FetchDocument reads {level}/{identifier}.json.
func (s *DirSource) FetchDocument(ctx context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error) {
	_, span := tracer.Start(ctx, "DirSource.FetchDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("source.name", s.name),
		attribute.String("budget.level", string(level)),
		attribute.String("budget.identifier", identifier),
	)

	rel, err := documentPath(level, identifier)
	if err != nil {
		return nil, err
	}
	return readJSON[domain.BudgetDocument](s, rel, domain.CacheKey(level, identifier))
}

// FetchSources reads meta/sources.json.
func (s *DirSource) FetchSources(ctx context.Context) (*domain.SourceCatalog, error) {
	_, span := tracer.Start(ctx, "DirSource.FetchSources")
	defer span.End()

	return readJSON[domain.SourceCatalog](s, sourcesPath, sourcesPath)
}

func readJSON[T any](s *DirSource, rel, id string) (*T, error) {
	f, err := s.fsys.Open(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ErrNotFound{Resource: "budget data", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: s.name, Err: err}
	}
	defer f.Close()

	var v T
	if err := json.NewDecoder(io.LimitReader(f, maxDocumentBytes)).Decode(&v); err != nil {
		return nil, &domain.ErrExternalService{Service: s.name, Err: fmt.Errorf("decoding %s: %w", rel, err)}
	}
	return &v, nil
}
