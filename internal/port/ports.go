// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from where budget documents come from and how they are cached.
package port

import (
	"context"

	"github.com/budgetforpublic/budget-api/internal/domain"
)

// DocumentSource loads published budget documents and the source catalog.
type DocumentSource interface {
	FetchDocument(ctx context.Context, level domain.Level, identifier string) (*domain.BudgetDocument, error)
	FetchSources(ctx context.Context) (*domain.SourceCatalog, error)
}

// Translator resolves a key within a namespace of the active locale.
type Translator interface {
	Resolve(namespace, key string) (string, bool)
}

// Cache provides generic keyed caching.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
	Keys() []string
	Len() int
}
