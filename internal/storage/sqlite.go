package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteStore implements MetadataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		ordinal INTEGER NOT NULL,
		title TEXT,
		url TEXT,
		content TEXT NOT NULL,
		headings TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_documents_ordinal ON documents(ordinal);
	`
	_, err := db.Exec(schema)
	return err
}

// Replace deletes every stored document and inserts docs in a transaction.
func (s *SQLiteStore) Replace(ctx context.Context, docs []*models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, ordinal, title, url, content, headings)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, doc := range docs {
		headingsJSON, err := json.Marshal(doc.Headings)
		if err != nil {
			return fmt.Errorf("failed to marshal headings: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, i, doc.Title, doc.URL, doc.Content, string(headingsJSON)); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var headingsJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, url, content, headings FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Content, &headingsJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := decodeHeadings(headingsJSON, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents in load order with offset and limit.
func (s *SQLiteStore) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, url, content, headings
		 FROM documents ORDER BY ordinal LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var headingsJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Content, &headingsJSON); err != nil {
			return nil, err
		}
		if err := decodeHeadings(headingsJSON, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeHeadings(raw sql.NullString, doc *models.Document) error {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), &doc.Headings); err != nil {
		return fmt.Errorf("failed to unmarshal headings: %w", err)
	}
	return nil
}
