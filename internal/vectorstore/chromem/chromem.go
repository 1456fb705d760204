package chromem

import (
	"context"
	"errors"
	"runtime"
	"strconv"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

const collectionName = "knowledge"

// Storage adapts a chromem-go collection to the Storage interface. Embeddings
// are precomputed by the pipeline's embedder, so the collection never calls
// out to an embedding service itself.
type Storage struct {
	db        *chromemgo.DB
	coll      *chromemgo.Collection
	dimension int
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.db = chromemgo.NewDB()
	coll, err := s.db.CreateCollection(collectionName, nil, rejectEmbedding)
	if err != nil {
		return err
	}
	s.coll = coll
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if s.coll == nil {
		return errors.New("store not initialized")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	docs := make([]chromemgo.Document, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		emb := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			emb[j] = float32(v)
		}
		docs[i] = chromemgo.Document{
			ID:      ch.ChunkID,
			Content: ch.Text,
			Metadata: map[string]string{
				"source_doc_id": ch.SourceDocID,
				"index":         strconv.Itoa(ch.Index),
				"start_offset":  strconv.Itoa(ch.StartOffset),
			},
			Embedding: emb,
		}
	}
	return s.coll.AddDocuments(context.Background(), docs, runtime.NumCPU())
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}
	if s.coll == nil {
		return nil, errors.New("store not initialized")
	}
	count := s.coll.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	q := make([]float32, len(vector))
	for i, v := range vector {
		q[i] = float32(v)
	}
	found, err := s.coll.QueryEmbedding(context.Background(), q, topK, nil, nil)
	if err != nil {
		return nil, err
	}
	results := make([]domain.RetrievalResult, 0, len(found))
	for i, r := range found {
		chunk := domain.Chunk{
			ChunkID:     r.ID,
			Text:        r.Content,
			SourceDocID: r.Metadata["source_doc_id"],
		}
		if v, err := strconv.Atoi(r.Metadata["index"]); err == nil {
			chunk.Index = v
		}
		if v, err := strconv.Atoi(r.Metadata["start_offset"]); err == nil {
			chunk.StartOffset = v
		}
		results = append(results, domain.RetrievalResult{
			Chunk: chunk,
			Score: float64(r.Similarity),
			Rank:  i + 1,
		})
	}
	return results, nil
}

func (s *Storage) Clear() error {
	if s.db == nil {
		return nil
	}
	return s.db.DeleteCollection(collectionName)
}

// rejectEmbedding guards against accidental service calls from inside the
// collection; all vectors are supplied up front.
func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem store expects precomputed embeddings")
}
