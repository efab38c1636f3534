// Package extract turns statement documents into model.RawStatement values
// by way of an external extraction service or a local text reader.
package extract

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// ErrUnknownExtractor is returned when a configured extractor is not registered.
var ErrUnknownExtractor = errors.New("unknown extractor")

// Extractor pulls balances and transactions out of one statement document.
type Extractor interface {
	Extract(ctx context.Context, path string) (model.RawStatement, error)
	Name() string
}

// Registry holds named extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor. Panics on duplicate name.
func (r *Registry) Register(e Extractor) {
	key := strings.ToLower(e.Name())
	if _, ok := r.extractors[key]; ok {
		panic("duplicate extractor: " + key)
	}
	r.extractors[key] = e
}

// Get returns the extractor for name, or nil.
func (r *Registry) Get(name string) Extractor {
	return r.extractors[strings.ToLower(name)]
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for n := range r.extractors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StatementID derives a statement ID from a document path: the base name
// without extension. "Bank_statements/2025-01.pdf" -> "2025-01"
func StatementID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func stamp(raw model.RawStatement, path, extractor string) model.RawStatement {
	raw.ID = StatementID(path)
	raw.Source = path
	raw.Extractor = extractor
	return raw
}
