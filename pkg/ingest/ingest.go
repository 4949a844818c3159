// Package ingest writes synthesized documents into the vector index. The
// run is idempotent at the collection level: a non-empty index is left
// untouched.
package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/internal/types"
)

type Config struct {
	BatchSize int
	// OnProgress, if set, is called after each batch with the total number
	// of documents inserted so far.
	OnProgress func(inserted int)
}

type Ingestor struct {
	embedder  types.Embedder
	index     types.VectorIndex
	batchSize int
	progress  func(int)
	logger    *slog.Logger

	// Only one ingestion may run at a time; the populated check is not
	// atomic against concurrent writers.
	mu sync.Mutex
}

func New(embedder types.Embedder, index types.VectorIndex, config Config, logger *slog.Logger) *Ingestor {
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Ingestor{
		embedder:  embedder,
		index:     index,
		batchSize: config.BatchSize,
		progress:  config.OnProgress,
		logger:    logger,
	}
}

// Ingest embeds and inserts the documents in fixed-size batches. When the
// index already holds entries the run is a no-op. Partial ingestion left
// behind by a failed run is not rolled back; the returned error names the
// failing rows or batch.
func (in *Ingestor) Ingest(ctx context.Context, docs []models.Document) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	count, err := in.index.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		in.logger.Info("index already populated, skipping ingestion",
			"existing", count, "offered", len(docs))
		return nil
	}

	in.logger.Info("ingesting documents", "total", len(docs), "batch_size", in.batchSize)

	inserted := 0
	for start := 0; start < len(docs); start += in.batchSize {
		end := start + in.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Content
		}

		vectors, err := in.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}

		if err := in.index.Insert(ctx, batch, vectors); err != nil {
			return err
		}

		inserted += len(batch)
		if in.progress != nil {
			in.progress(inserted)
		}
		in.logger.Debug("inserted batch", "from", start, "to", end)
	}

	in.logger.Info("ingestion complete", "inserted", inserted)
	return nil
}
