// Package rag wires the retrieval pipeline: embed the query, pull the
// nearest ledger documents from the vector index, and hand them to the
// answer composer together with a chart series built from the same
// retrieval.
package rag

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/internal/types"
)

var errNoVector = errors.New("embedder returned no vector for query")

type Analyst struct {
	embedder types.Embedder
	index    types.VectorIndex
	composer types.Composer
	topK     int
	logger   *slog.Logger
}

// Analysis is the result of one query: the narrative answer, the records
// it was grounded on, and the chart series derived from those records.
type Analysis struct {
	Answer  string
	Records []models.ScoredDocument
	Chart   []ChartPoint
}

func NewAnalyst(embedder types.Embedder, index types.VectorIndex, composer types.Composer, topK int, logger *slog.Logger) *Analyst {
	if topK <= 0 {
		topK = 15
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyst{
		embedder: embedder,
		index:    index,
		composer: composer,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns up to k documents ordered by descending similarity to
// the query. An empty index yields an empty result.
func (a *Analyst) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredDocument, error) {
	vectors, err := a.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &models.EmbeddingError{Err: errNoVector}
	}

	docs, err := a.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("retrieved documents", "query", query, "k", k, "hits", len(docs))
	return docs, nil
}

// Analyze runs the full pipeline for one query: retrieval strictly
// precedes generation, and the chart is built only from this query's
// retrieval result.
func (a *Analyst) Analyze(ctx context.Context, query string) (Analysis, error) {
	records, err := a.Retrieve(ctx, query, a.topK)
	if err != nil {
		return Analysis{}, err
	}

	docs := make([]models.Document, len(records))
	for i, r := range records {
		docs[i] = r.Document
	}

	answer, err := a.composer.Answer(ctx, query, docs)
	if err != nil {
		return Analysis{}, err
	}

	return Analysis{
		Answer:  answer,
		Records: records,
		Chart:   Series(records),
	}, nil
}
