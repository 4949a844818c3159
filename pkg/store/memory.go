package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/walle/internal/models"
)

// MemoryStore is an in-process vector index with cosine similarity search.
// It backs tests and lets the analyst run without a database; nothing is
// persisted.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    []models.Document
	vectors [][]float32
	ids     map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		ids: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MemoryStore) Insert(ctx context.Context, docs []models.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return &models.IndexError{
			Op:  "insert",
			Err: fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors)),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if _, ok := m.ids[doc.ID]; ok {
			return &models.DuplicateDocumentError{ID: doc.ID}
		}
		if _, ok := seen[doc.ID]; ok {
			return &models.DuplicateDocumentError{ID: doc.ID}
		}
		seen[doc.ID] = struct{}{}
	}

	for i, doc := range docs {
		m.ids[doc.ID] = struct{}{}
		m.docs = append(m.docs, doc)
		m.vectors = append(m.vectors, vectors[i])
	}

	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.docs) == 0 || k <= 0 {
		return nil, nil
	}

	results := make([]models.ScoredDocument, 0, len(m.docs))
	for i, doc := range m.docs {
		results = append(results, models.ScoredDocument{
			Document:   doc,
			Similarity: cosineSimilarity(vector, m.vectors[i]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k < len(results) {
		results = results[:k]
	}

	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
