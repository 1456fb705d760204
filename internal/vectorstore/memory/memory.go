package memory

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

// Storage is an in-memory vector store using brute-force cosine similarity.
// A linear scan per query is fine at this corpus scale; the Storage interface
// leaves room to swap in an ANN-backed store later.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search scans all entries, scoring by cosine similarity. Ties break by
// ascending chunk index so repeated identical queries return identical
// ordered results.
func (s *Storage) Search(vector []float64, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		order[i] = i
		scores[i] = cosineSimilarity(s.vectors[i], vector)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return s.chunks[ia].Index < s.chunks[ib].Index
	})
	if topK > len(order) {
		topK = len(order)
	}
	results := make([]domain.RetrievalResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := order[i]
		results = append(results, domain.RetrievalResult{
			Chunk: s.chunks[j],
			Score: scores[j],
			Rank:  i + 1,
		})
	}
	return results, nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

// cosineSimilarity is the dot product divided by the product of magnitudes.
// Zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
