package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/storage"
)

// storeMetadata serves Metadata from a MetadataStore.
type storeMetadata struct {
	store  storage.MetadataStore
	logger *zap.Logger
}

func (m *storeMetadata) GetInformation(docID string) string {
	doc, err := m.store.GetDocument(context.Background(), docID)
	if err != nil {
		m.logger.Debug("No metadata for document", zap.String("id", docID), zap.Error(err))
		return ""
	}
	return doc.Information()
}

func (m *storeMetadata) GetContent(docID string) string {
	doc, err := m.store.GetDocument(context.Background(), docID)
	if err != nil {
		m.logger.Debug("No content for document", zap.String("id", docID), zap.Error(err))
		return ""
	}
	return doc.Content
}
