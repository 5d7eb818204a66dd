package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/studyflow/course-processor/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ExistsByName reports whether the owner already has a document with the
// given file name. Used by the duplicate fast-fail before any LLM cost.
func (db *DB) ExistsByName(ctx context.Context, ownerID, name string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE owner_id = $1 AND name = $2)`,
		ownerID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document name: %w", err)
	}
	return exists, nil
}

// CreateDocument inserts a new document record.
func (db *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO documents (id, owner_id, name, kind, status, status_message, school, course, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		doc.ID, doc.OwnerID, doc.Name, doc.Kind, doc.Status, doc.StatusMessage, doc.School, doc.Course,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument loads one document by id.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, kind, status, status_message, school, course, created_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.Kind, &doc.Status, &doc.StatusMessage,
		&doc.School, &doc.Course, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns the owner's documents, newest first.
func (db *DB) ListDocuments(ctx context.Context, ownerID string) ([]*models.Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, owner_id, name, kind, status, status_message, school, course, created_at
		 FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Name, &doc.Kind, &doc.Status,
			&doc.StatusMessage, &doc.School, &doc.Course, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// SetDocumentStatus updates the lifecycle status and its message.
func (db *DB) SetDocumentStatus(ctx context.Context, id uuid.UUID, status models.Status, message string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE documents SET status = $2, status_message = $3 WHERE id = $1`,
		id, status, message,
	)
	if err != nil {
		return fmt.Errorf("failed to set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document; chunks cascade.
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
