package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ppiankov/animequote/internal/model"
)

const documentColumns = `id, title, source, content_type, content_hash, body, word_count, created_at`

// InsertDocument stores a new document. Content hashes are unique.
func (s *Store) InsertDocument(ctx context.Context, doc model.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.ContentType, doc.ContentHash, doc.Text, doc.WordCount, formatTime(doc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument loads a document, including its text
func (s *Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// FindDocumentByHash looks a document up by the sha256 of its raw bytes
func (s *Store) FindDocumentByHash(ctx context.Context, hash string) (model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, fmt.Errorf("document with hash %s: %w", hash, ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns every document, newest first, without text
func (s *Store) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, content_type, content_hash, '', word_count, created_at
		 FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (model.Document, error) {
	var (
		doc       model.Document
		createdAt string
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentType, &doc.ContentHash, &doc.Text, &doc.WordCount, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Document{}, err
		}
		return model.Document{}, fmt.Errorf("scan document: %w", err)
	}
	doc.CreatedAt = parseTime(createdAt)
	return doc, nil
}
