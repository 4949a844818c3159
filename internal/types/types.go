package types

import (
	"context"

	"github.com/xhad/walle/internal/models"
)

// Core interfaces

// Loader produces the ordered sequence of ledger records from a source,
// preserving source row order.
type Loader interface {
	Load(ctx context.Context) ([]models.Record, error)
}

// Embedder converts texts into fixed-dimension vectors. The same embedder
// must be used at ingestion and query time.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex persists document embeddings and supports nearest-neighbor
// search. Implementations return results ordered by descending similarity.
type VectorIndex interface {
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, docs []models.Document, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredDocument, error)
}

// Composer renders retrieved documents and the question into a prompt and
// produces a narrative answer from the language model.
type Composer interface {
	Answer(ctx context.Context, question string, docs []models.Document) (string, error)
}
