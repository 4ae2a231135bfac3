// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
)

// VectorStore is a PostgreSQL implementation of storage.VectorStore with
// provider-native cosine search through the pgvector extension.
type VectorStore struct {
	pool   *pgxpool.Pool
	config *Config
	logger *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore connects to Postgres, bootstraps the schema, and returns
// the store.
func NewVectorStore(ctx context.Context, config *Config) (storage.VectorStore, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &VectorStore{
		pool:   pool,
		config: config,
		logger: slog.Default().With("component", "pgvector-store"),
	}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *VectorStore) createSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS embedding_documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		chunk_index INT NOT NULL,
		content_chunk TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		metadata BYTEA,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_embedding_documents_owner
		ON embedding_documents(owner_id, document_id, chunk_index);

	CREATE INDEX IF NOT EXISTS idx_embedding_documents_embedding
		ON embedding_documents USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`, s.config.Dimension)

	_, err := s.pool.Exec(ctx, query)
	return err
}

// Create persists a new embedding document.
func (s *VectorStore) Create(ctx context.Context, doc *core.EmbeddingDocument) (*core.EmbeddingDocument, error) {
	query := `
	INSERT INTO embedding_documents
		(id, owner_id, document_id, chunk_index, content_chunk, embedding, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		doc.ID, doc.OwnerID, doc.DocumentID, doc.ChunkIndex,
		doc.ContentChunk, pgvec.NewVector(doc.Embedding), doc.Metadata, doc.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", storage.ErrDuplicateKey, doc.ID)
		}
		return nil, err
	}
	return doc, nil
}

// DeleteByOwner removes documents for an owner, optionally scoped to one
// parent import.
func (s *VectorStore) DeleteByOwner(ctx context.Context, ownerID, documentID string) error {
	if documentID != "" {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM embedding_documents WHERE owner_id = $1 AND document_id = $2`,
			ownerID, documentID)
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM embedding_documents WHERE owner_id = $1`, ownerID)
	return err
}

// QueryByPartition fetches an owner's documents ordered by document ID
// and ascending chunk index.
func (s *VectorStore) QueryByPartition(ctx context.Context, ownerID string, opts storage.QueryOptions) ([]*core.EmbeddingDocument, error) {
	query := `
	SELECT id, owner_id, document_id, chunk_index, content_chunk, embedding, metadata, created_at
	FROM embedding_documents
	WHERE owner_id = $1
	`
	args := []any{ownerID}
	if opts.DocumentID != "" {
		query += ` AND document_id = $2`
		args = append(args, opts.DocumentID)
	}
	query += ` ORDER BY document_id, chunk_index`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*core.EmbeddingDocument
	for rows.Next() {
		doc, err := scanDocument(rows, nil)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SearchByVector runs native cosine search inside Postgres, scoped to the
// owner partition.
func (s *VectorStore) SearchByVector(ctx context.Context, ownerID string, vector []float32, limit int) ([]*core.ScoredDocument, error) {
	query := `
	SELECT id, owner_id, document_id, chunk_index, content_chunk, embedding, metadata, created_at,
		1 - (embedding <=> $2) AS similarity
	FROM embedding_documents
	WHERE owner_id = $1
	ORDER BY embedding <=> $2
	LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, ownerID, pgvec.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.ScoredDocument
	for rows.Next() {
		var similarity float64
		doc, err := scanDocument(rows, &similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ScoredDocument{Document: doc, Similarity: similarity})
	}
	return results, rows.Err()
}

// Close closes the connection pool.
func (s *VectorStore) Close() error {
	s.pool.Close()
	s.logger.Debug("closed postgres connection pool")
	return nil
}

func scanDocument(rows pgx.Rows, similarity *float64) (*core.EmbeddingDocument, error) {
	doc := &core.EmbeddingDocument{}
	var embedding pgvec.Vector

	dest := []any{
		&doc.ID, &doc.OwnerID, &doc.DocumentID, &doc.ChunkIndex,
		&doc.ContentChunk, &embedding, &doc.Metadata, &doc.Timestamp,
	}
	if similarity != nil {
		dest = append(dest, similarity)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	doc.Embedding = embedding.Slice()
	return doc, nil
}
