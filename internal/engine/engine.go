// Package engine defines the indexing engine the presentation layer talks to
// and provides a bleve-backed implementation of it.
package engine

import (
	"errors"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
)

// ErrNotLoaded is returned by engine calls made before an index was loaded.
var ErrNotLoaded = errors.New("index not loaded")

// Engine matches queries against a loaded index.
type Engine interface {
	// SetStemmer selects the stemmer used by the next Load.
	SetStemmer(Stemmer)
	// Load replaces the index with the artifact in data. Malformed data yields
	// an *IndexLoadError and leaves the previous index in place.
	Load(data []byte) error
	// Search returns the matched units in engine order, or relaxation
	// proposals when a multi-term query matched nothing.
	Search(queries []query.Query) (*models.MatchSummary, error)
	// PrimaryMetadata gives access to document titles, URLs and content.
	PrimaryMetadata() Metadata
	// IsStructurallyWeighted reports whether offset in the document lies in a
	// heading or the title.
	IsStructurallyWeighted(docID string, offset int) bool
}

// Metadata is read-only per-document information. Unknown ids yield "".
type Metadata interface {
	// GetInformation returns the title and URL joined by models.EOB.
	GetInformation(docID string) string
	GetContent(docID string) string
}

// IndexLoadError reports an index artifact that could not be loaded.
type IndexLoadError struct {
	Reason string
	Err    error
}

func (e *IndexLoadError) Error() string {
	if e.Err == nil {
		return "index load failed: " + e.Reason
	}
	return fmt.Sprintf("index load failed: %s: %v", e.Reason, e.Err)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

func loadError(reason string, err error) *IndexLoadError {
	return &IndexLoadError{Reason: reason, Err: err}
}
