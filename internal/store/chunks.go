package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/studyflow/course-processor/internal/models"
)

// InsertChunks writes a batch of chunks in one round trip. Embeddings may be
// nil; a nil embedding is stored as NULL until computed.
func (db *DB) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		batch.Queue(
			`INSERT INTO chunks (id, document_id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			chunk.ID, chunk.DocumentID, chunk.Content, meta, embeddingParam(chunk.Embedding),
		)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// GetChunk loads one chunk by id.
func (db *DB) GetChunk(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, document_id, content, metadata, embedding, created_at
		 FROM chunks WHERE id = $1`,
		id,
	)
	chunk, err := scanChunk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return chunk, err
}

// ListChunksByDocument returns a document's chunks in insertion order.
func (db *DB) ListChunksByDocument(ctx context.Context, docID uuid.UUID) ([]*models.Chunk, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, content, metadata, embedding, created_at
		 FROM chunks WHERE document_id = $1 ORDER BY created_at, id`,
		docID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// UpdateChunkContent replaces the chunk's content and metadata after a
// manual edit. The stale embedding is cleared; re-embedding replaces it
// wholesale later.
func (db *DB) UpdateChunkContent(ctx context.Context, id uuid.UUID, content string, meta models.ChunkMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk metadata: %w", err)
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE chunks SET content = $2, metadata = $3, embedding = NULL WHERE id = $1`,
		id, content, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to update chunk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateChunkEmbedding replaces the embedding vector wholesale.
func (db *DB) UpdateChunkEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE chunks SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to update chunk embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChunk removes one chunk.
func (db *DB) DeleteChunk(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}
	return nil
}

// DeleteChunksByDocument removes every chunk of a document. Used both by the
// ingestion rollback and by document deletion.
func (db *DB) DeleteChunksByDocument(ctx context.Context, docID uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}

// SearchByVector ranks ready chunks in a course by cosine similarity against
// the query embedding, dropping anything below minSimilarity.
func (db *DB) SearchByVector(
	ctx context.Context,
	course string,
	embedding []float32,
	limit int,
	minSimilarity float64,
	filter map[string]interface{},
) ([]models.ScoredChunk, error) {
	vec := pgvector.NewVector(embedding)
	query := `
		SELECT c.id, c.document_id, c.content, c.metadata, c.embedding, c.created_at,
		       1 - (c.embedding <=> $1) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.course = $2
		  AND d.status = 'ready'
		  AND c.embedding IS NOT NULL
		  AND 1 - (c.embedding <=> $1) >= $3`
	args := []interface{}{vec, course, minSimilarity}

	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata filter: %w", err)
		}
		query += fmt.Sprintf(" AND c.metadata @> $%d", len(args)+1)
		args = append(args, raw)
	}

	query += fmt.Sprintf(" ORDER BY c.embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return db.queryScored(ctx, query, args)
}

// SearchByKeyword ranks ready chunks in a course by full-text relevance.
func (db *DB) SearchByKeyword(
	ctx context.Context,
	course string,
	queryText string,
	limit int,
	filter map[string]interface{},
) ([]models.ScoredChunk, error) {
	query := `
		SELECT c.id, c.document_id, c.content, c.metadata, c.embedding, c.created_at,
		       ts_rank(to_tsvector('simple', c.content), plainto_tsquery('simple', $1)) AS rank
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.course = $2
		  AND d.status = 'ready'
		  AND to_tsvector('simple', c.content) @@ plainto_tsquery('simple', $1)`
	args := []interface{}{queryText, course}

	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata filter: %w", err)
		}
		query += fmt.Sprintf(" AND c.metadata @> $%d", len(args)+1)
		args = append(args, raw)
	}

	query += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return db.queryScored(ctx, query, args)
}

func (db *DB) queryScored(ctx context.Context, query string, args []interface{}) ([]models.ScoredChunk, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var (
			chunk models.Chunk
			meta  []byte
			emb   *pgvector.Vector
			score float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &meta, &emb, &chunk.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
		if emb != nil {
			chunk.Embedding = emb.Slice()
		}
		results = append(results, models.ScoredChunk{Chunk: chunk, Score: score})
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var (
		chunk models.Chunk
		meta  []byte
		emb   *pgvector.Vector
	)
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &meta, &emb, &chunk.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
	}
	if emb != nil {
		chunk.Embedding = emb.Slice()
	}
	return &chunk, nil
}

func embeddingParam(embedding []float32) interface{} {
	if embedding == nil {
		return nil
	}
	return pgvector.NewVector(embedding)
}
