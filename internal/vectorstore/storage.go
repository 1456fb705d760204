package vectorstore

import "github.com/aaryapoyrekar/isro-bot/internal/domain"

// Storage holds (chunk, vector) pairs and supports k-nearest-neighbor search
// by cosine similarity. A built store is read-only for the lifetime of all
// queries against that corpus version; rebuilding happens on a fresh instance
// so in-flight readers never observe a partially-built index.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float64) error
	// Search returns up to topK results ranked descending by similarity.
	// topK must be positive.
	Search(vector []float64, topK int) ([]domain.RetrievalResult, error)
	Clear() error
}
