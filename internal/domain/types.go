package domain

import "time"

// KnowledgeSnapshot is an immutable, versioned view of the knowledge base text.
// Rebuilding the index for new text or new chunking parameters produces a new
// snapshot; the old one is never mutated.
type KnowledgeSnapshot struct {
	ID        string
	Text      string
	Topics    []string
	UpdatedAt time.Time
}

// Chunk is a bounded, overlap-aware slice of the knowledge text, the unit of
// retrieval. Text includes the overlap prefix carried from the previous chunk,
// so Text == snapshot.Text[StartOffset : StartOffset+len(Text)].
type Chunk struct {
	SourceDocID string
	ChunkID     string
	Text        string
	StartOffset int
	Index       int
}

// RetrievalResult is a chunk matched against one query, annotated with its
// cosine similarity score and rank (1 = most relevant). Transient, per query.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	RequestID       string    `json:"request_id"`
	ChunksRetrieved int       `json:"chunks_retrieved"`
	ChunksTotal     int       `json:"chunks_total"`
	ContextLength   int       `json:"context_length"`
	QueryLength     int       `json:"query_length"`
	ElapsedMS       int64     `json:"elapsed_ms"`
	ChunkSize       int       `json:"chunk_size"`
	ChunkOverlap    int       `json:"chunk_overlap"`
	TopK            int       `json:"top_k"`
	Temperature     float64   `json:"temperature"`
	MaxTokens       int       `json:"max_tokens"`
	Timestamp       time.Time `json:"timestamp"`
}

// AnswerResult is the final outcome of one query. Metadata is nil unless it
// was requested or the advanced operation was used.
type AnswerResult struct {
	Answer   string          `json:"answer"`
	Metadata *AnswerMetadata `json:"metadata,omitempty"`
}

// Batch outcome statuses.
const (
	BatchStatusSuccess = "success"
	BatchStatusError   = "error"
)

// BatchOutcome records the result of one query slot in a batch run. Index
// matches the position of the query in the input sequence.
type BatchOutcome struct {
	Query  string `json:"query"`
	Index  int    `json:"index"`
	Status string `json:"status"`
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}
