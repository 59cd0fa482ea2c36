// Package source implements port.DocumentSource over HTTP, a directory tree
// and the embedded fallback data. All sources share the published layout:
//
//	{level}/{identifier}.json   budget documents
//	meta/sources.json           data source catalog
package source

import (
	"embed"
	"io/fs"
	"path"

	"go.opentelemetry.io/otel"

	"github.com/budgetforpublic/budget-api/internal/domain"
)

var tracer = otel.Tracer("source")

//go:embed fallbackdata
var fallbackFS embed.FS

const sourcesPath = "meta/sources.json"

// maxDocumentBytes bounds a single response or file.
const maxDocumentBytes = 16 << 20

// Embedded returns the fallback data tree (APBN 2025 and the source catalog).
func Embedded() fs.FS {
	sub, err := fs.Sub(fallbackFS, "fallbackdata")
	if err != nil {
		panic("source: embedded fallback data missing: " + err.Error())
	}
	return sub
}

// documentPath validates level and identifier and returns the relative path
// of the document.
func documentPath(level domain.Level, identifier string) (string, error) {
	if !level.Valid() {
		return "", &domain.ErrValidation{Field: "level", Message: "must be national or regional"}
	}
	if err := domain.ValidateIdentifier(identifier); err != nil {
		return "", err
	}
	return path.Join(string(level), identifier+".json"), nil
}
