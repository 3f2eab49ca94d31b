package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// MemoryStore keeps documents in a map. It is the default store.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]*models.Document
	order []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*models.Document)}
}

// Replace implements MetadataStore.
func (m *MemoryStore) Replace(_ context.Context, docs []*models.Document) error {
	next := make(map[string]*models.Document, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		if _, dup := next[doc.ID]; dup {
			return fmt.Errorf("duplicate document id %q", doc.ID)
		}
		next[doc.ID] = doc
		order = append(order, doc.ID)
	}
	m.mu.Lock()
	m.docs = next
	m.order = order
	m.mu.Unlock()
	return nil
}

// GetDocument implements MetadataStore.
func (m *MemoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns documents in load order.
func (m *MemoryStore) ListDocuments(_ context.Context, offset, limit int) ([]*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 || offset >= len(m.order) {
		return nil, nil
	}
	end := len(m.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.Document, 0, end-offset)
	for _, id := range m.order[offset:end] {
		out = append(out, m.docs[id])
	}
	return out, nil
}

// CountDocuments implements MetadataStore.
func (m *MemoryStore) CountDocuments(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// Close implements MetadataStore.
func (m *MemoryStore) Close() error { return nil }
