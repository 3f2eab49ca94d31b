// Package storage defines the persistence interface for per-document metadata.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shiori/internal/models"
)

// ErrNotFound is returned when a document id is unknown to the store.
var ErrNotFound = errors.New("document not found")

// MetadataStore holds the title, URL, content and heading spans of every
// document in the loaded index.
type MetadataStore interface {
	// Replace swaps the whole document set for docs in one step.
	Replace(ctx context.Context, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
