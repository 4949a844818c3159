package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/walle/internal/models"
)

const uniqueViolation = "23505"

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore is the persistent vector index, backed by PostgreSQL with the
// pgvector extension. Search uses cosine distance.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "rate_documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1024 // mxbai-embed-large
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, &models.IndexError{Op: "connect", Err: err}
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return &models.IndexError{Op: "init", Err: err}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			date TEXT NOT NULL,
			year INTEGER NOT NULL,
			rate DOUBLE PRECISION NOT NULL,
			change DOUBLE PRECISION NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return &models.IndexError{Op: "init", Err: err}
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return &models.IndexError{Op: "init", Err: err}
	}

	return nil
}

// Count reports how many entries the index holds.
func (vs *VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, &models.IndexError{Op: "count", Err: err}
	}
	return count, nil
}

// Insert writes documents and their embeddings in one transaction. An id
// collision aborts the transaction with a DuplicateDocumentError.
func (vs *VectorStore) Insert(ctx context.Context, docs []models.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return &models.IndexError{
			Op:  "insert",
			Err: fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors)),
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return &models.IndexError{Op: "insert", Err: err}
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, date, year, rate, change, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vs.config.TableName)

	for i, doc := range docs {
		_, err = tx.Exec(ctx, stmt,
			doc.ID,
			doc.Content,
			doc.Metadata.Date,
			doc.Metadata.Year,
			doc.Metadata.Rate,
			doc.Metadata.Change,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return &models.DuplicateDocumentError{ID: doc.ID}
			}
			return &models.IndexError{Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &models.IndexError{Op: "insert", Err: err}
	}

	return nil
}

// Search returns up to k documents ordered by descending cosine similarity
// to the query embedding. An empty index yields an empty result, not an
// error.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredDocument, error) {
	query := fmt.Sprintf(`
		SELECT id, content, date, year, rate, change, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, &models.IndexError{Op: "search", Err: err}
	}
	defer rows.Close()

	var docs []models.ScoredDocument
	for rows.Next() {
		var doc models.ScoredDocument
		err := rows.Scan(
			&doc.ID,
			&doc.Content,
			&doc.Metadata.Date,
			&doc.Metadata.Year,
			&doc.Metadata.Rate,
			&doc.Metadata.Change,
			&doc.Similarity,
		)
		if err != nil {
			return nil, &models.IndexError{Op: "search", Err: err}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.IndexError{Op: "search", Err: err}
	}

	return docs, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
