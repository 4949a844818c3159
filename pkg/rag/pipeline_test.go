package rag_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/pkg/rag"
	"github.com/xhad/walle/pkg/store"
)

type fakeEmbedder struct {
	err error
}

// Embed maps each text onto a small deterministic vector so similarity
// ordering is stable across runs.
func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		var vowels, letters float32
		for _, r := range text {
			switch r {
			case 'a', 'e', 'i', 'o', 'u':
				vowels++
			}
			letters++
		}
		vectors[i] = []float32{vowels + 1, letters + 1, 1}
	}
	return vectors, nil
}

type fakeComposer struct {
	answer   string
	err      error
	lastDocs []models.Document
}

func (f *fakeComposer) Answer(ctx context.Context, question string, docs []models.Document) (string, error) {
	f.lastDocs = docs
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func januaryLedger() []models.Document {
	return []models.Document{
		{ID: "0", Content: "On 01-01-2020 (2020), the exchange rate for 1 US Dollar was 70.0 Indian Rupees.",
			Metadata: models.Metadata{Date: "01-01-2020", Year: 2020, Rate: 70.0}},
		{ID: "1", Content: "On 02-01-2020 (2020), the exchange rate for 1 US Dollar was 70.5 Indian Rupees.",
			Metadata: models.Metadata{Date: "02-01-2020", Year: 2020, Rate: 70.5, Change: 0.5}},
		{ID: "2", Content: "On 03-01-2020 (2020), the exchange rate for 1 US Dollar was 71.0 Indian Rupees.",
			Metadata: models.Metadata{Date: "03-01-2020", Year: 2020, Rate: 71.0, Change: 0.5}},
	}
}

func populatedIndex(t *testing.T, emb *fakeEmbedder, docs []models.Document) *store.MemoryStore {
	t.Helper()
	index := store.NewMemory()

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.NoError(t, index.Insert(context.Background(), docs, vectors))

	return index
}

func TestRetrieve_KBound(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	index := populatedIndex(t, emb, januaryLedger())

	analyst := rag.NewAnalyst(emb, index, &fakeComposer{}, 15, nopLogger())

	results, err := analyst.Retrieve(ctx, "rate in January 2020", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = analyst.Retrieve(ctx, "rate in January 2020", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}

	analyst := rag.NewAnalyst(emb, store.NewMemory(), &fakeComposer{}, 15, nopLogger())

	results, err := analyst.Retrieve(ctx, "anything", 15)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_EmbeddingError(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{err: &models.EmbeddingError{Err: errors.New("unreachable")}}

	analyst := rag.NewAnalyst(emb, store.NewMemory(), &fakeComposer{}, 15, nopLogger())

	_, err := analyst.Retrieve(ctx, "anything", 15)

	var embErr *models.EmbeddingError
	require.True(t, errors.As(err, &embErr))
}

func TestAnalyze_JanuaryScenario(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	index := populatedIndex(t, emb, januaryLedger())
	composer := &fakeComposer{answer: "Rates rose steadily over the first three sessions of 2020."}

	analyst := rag.NewAnalyst(emb, index, composer, 3, nopLogger())

	analysis, err := analyst.Analyze(ctx, "rate in January 2020")
	require.NoError(t, err)

	assert.Equal(t, composer.answer, analysis.Answer)
	assert.Len(t, analysis.Records, 3)
	assert.Len(t, composer.lastDocs, 3)

	// Chart series sorted by date is monotonically increasing
	require.Len(t, analysis.Chart, 3)
	assert.Equal(t, 70.0, analysis.Chart[0].Rate)
	assert.Equal(t, 70.5, analysis.Chart[1].Rate)
	assert.Equal(t, 71.0, analysis.Chart[2].Rate)
	for i := 1; i < len(analysis.Chart); i++ {
		assert.True(t, analysis.Chart[i].Date.After(analysis.Chart[i-1].Date))
	}
}

func TestAnalyze_EmptyIndexStillGenerates(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	composer := &fakeComposer{answer: "No matching records were found in the ledger."}

	analyst := rag.NewAnalyst(emb, store.NewMemory(), composer, 15, nopLogger())

	analysis, err := analyst.Analyze(ctx, "rate in 1995")
	require.NoError(t, err)

	assert.Empty(t, composer.lastDocs)
	assert.Empty(t, analysis.Records)
	assert.Empty(t, analysis.Chart)
	assert.Contains(t, analysis.Answer, "No matching records")
}

func TestAnalyze_GenerationError(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	index := populatedIndex(t, emb, januaryLedger())
	composer := &fakeComposer{err: &models.GenerationError{Err: errors.New("model crashed")}}

	analyst := rag.NewAnalyst(emb, index, composer, 3, nopLogger())

	_, err := analyst.Analyze(ctx, "rate in January 2020")

	var genErr *models.GenerationError
	require.True(t, errors.As(err, &genErr))
}
