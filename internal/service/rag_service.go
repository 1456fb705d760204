package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aaryapoyrekar/isro-bot/internal/chunker"
	"github.com/aaryapoyrekar/isro-bot/internal/config"
	"github.com/aaryapoyrekar/isro-bot/internal/domain"
	"github.com/aaryapoyrekar/isro-bot/internal/embedding"
	"github.com/aaryapoyrekar/isro-bot/internal/generation"
	"github.com/aaryapoyrekar/isro-bot/internal/prompt"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore"
)

// RAGService runs the answering pipeline: segment the knowledge text, embed
// chunks and query, retrieve the top-K chunks, assemble a grounded prompt,
// and generate an answer.
type RAGService struct {
	embedder  embedding.Embedder
	generator generation.Generator
	newStore  func() vectorstore.Storage
	prompts   *prompt.Builder

	// idx holds the index for the most recent (knowledge text, chunking
	// params) combination. Rebuilds construct a full replacement before the
	// swap, so concurrent queries never observe a partially-built index.
	idx atomic.Pointer[indexSnapshot]
}

// indexSnapshot is one immutable index generation.
type indexSnapshot struct {
	fingerprint string
	store       vectorstore.Storage
	chunkCount  int
}

// NewRAGService wires the pipeline components. newStore constructs a fresh
// vector store per index generation (copy-on-build).
func NewRAGService(embedder embedding.Embedder, generator generation.Generator, newStore func() vectorstore.Storage, prompts *prompt.Builder) *RAGService {
	if prompts == nil {
		prompts = prompt.NewBuilder()
	}
	return &RAGService{
		embedder:  embedder,
		generator: generator,
		newStore:  newStore,
		prompts:   prompts,
	}
}

// Answer runs the pipeline for one query. Metadata is attached only when the
// config requests it.
func (s *RAGService) Answer(ctx context.Context, knowledgeText, query string, cfg config.Retrieval) (domain.AnswerResult, error) {
	res, err := s.answer(ctx, knowledgeText, query, cfg)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !cfg.IncludeMetadata {
		res.Metadata = nil
	}
	return res, nil
}

// AnswerAdvanced runs the same pipeline and always returns full metadata.
func (s *RAGService) AnswerAdvanced(ctx context.Context, knowledgeText, query string, cfg config.Retrieval) (domain.AnswerResult, error) {
	return s.answer(ctx, knowledgeText, query, cfg)
}

// AnswerBatch runs the pipeline once per query, in order. A failure on one
// query is recorded in its outcome slot and never aborts the rest. The
// output order matches the input query order.
func (s *RAGService) AnswerBatch(ctx context.Context, knowledgeText string, queries []string, cfg config.Retrieval) []domain.BatchOutcome {
	outcomes := make([]domain.BatchOutcome, 0, len(queries))
	for i, q := range queries {
		res, err := s.answer(ctx, knowledgeText, q, cfg)
		if err != nil {
			log.Printf("batch query %d failed: %v", i, err)
			outcomes = append(outcomes, domain.BatchOutcome{
				Query:  q,
				Index:  i,
				Status: domain.BatchStatusError,
				Error:  domain.UserMessage(err),
			})
			continue
		}
		outcomes = append(outcomes, domain.BatchOutcome{
			Query:  q,
			Index:  i,
			Status: domain.BatchStatusSuccess,
			Answer: res.Answer,
		})
	}
	return outcomes
}

// Respond is the caller-facing contract: it always returns an AnswerResult.
// On failure the Answer field carries the fixed user-safe message for the
// classified kind; the raw error is logged, never returned.
func (s *RAGService) Respond(ctx context.Context, knowledgeText, query string, cfg config.Retrieval) domain.AnswerResult {
	res, err := s.Answer(ctx, knowledgeText, query, cfg)
	if err != nil {
		log.Printf("answer failed: %v", err)
		return domain.AnswerResult{Answer: domain.UserMessage(err)}
	}
	return res
}

// answer is the full pipeline: validate -> embed -> retrieve -> assemble ->
// generate. Retrieval and assembly are pure local computation; only the
// embedding and generation calls touch the network.
func (s *RAGService) answer(ctx context.Context, knowledgeText, query string, cfg config.Retrieval) (domain.AnswerResult, error) {
	started := time.Now()

	if strings.TrimSpace(knowledgeText) == "" {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"knowledge text must be a non-empty string")
	}
	if strings.TrimSpace(query) == "" {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"query must be a non-empty string")
	}
	cfg = cfg.WithDefaults()
	if cfg.TopK < 0 {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"topK must be positive, got %d", cfg.TopK)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"temperature must be in [0, 1], got %g", cfg.Temperature)
	}
	if cfg.MaxTokens < 0 {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"maxTokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return domain.AnswerResult{}, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	snap, err := s.ensureIndex(ctx, knowledgeText, cfg)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return domain.AnswerResult{}, domain.Wrap(domain.StageEmbed, err)
	}

	results, err := snap.store.Search(queryVector, cfg.TopK)
	if err != nil {
		return domain.AnswerResult{}, domain.Wrap(domain.StageRetrieve, err)
	}

	promptText := s.prompts.Build(query, results)

	answer, err := s.generator.Generate(ctx, promptText, generation.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return domain.AnswerResult{}, domain.Wrap(domain.StageGenerate, err)
	}

	return domain.AnswerResult{
		Answer: strings.TrimSpace(answer),
		Metadata: &domain.AnswerMetadata{
			RequestID:       uuid.NewString(),
			ChunksRetrieved: len(results),
			ChunksTotal:     snap.chunkCount,
			ContextLength:   len(promptText),
			QueryLength:     len(query),
			ElapsedMS:       time.Since(started).Milliseconds(),
			ChunkSize:       cfg.ChunkSize,
			ChunkOverlap:    cfg.ChunkOverlap,
			TopK:            cfg.TopK,
			Temperature:     cfg.Temperature,
			MaxTokens:       cfg.MaxTokens,
			Timestamp:       time.Now().UTC(),
		},
	}, nil
}

// ensureIndex returns the index for this knowledge text and chunking
// configuration, building it if the current generation does not match.
// The replacement is fully built before it becomes visible.
func (s *RAGService) ensureIndex(ctx context.Context, knowledgeText string, cfg config.Retrieval) (*indexSnapshot, error) {
	fp := fingerprint(knowledgeText, cfg.ChunkSize, cfg.ChunkOverlap)
	if cur := s.idx.Load(); cur != nil && cur.fingerprint == fp {
		return cur, nil
	}

	doc := domain.KnowledgeSnapshot{ID: fp[:12], Text: knowledgeText, UpdatedAt: time.Now().UTC()}
	chunks, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap).Chunk(doc)
	if err != nil {
		return nil, domain.Wrap(domain.StageRetrieve, err)
	}
	if len(chunks) == 0 {
		return nil, domain.Errorf(domain.StageValidate, domain.KindInvalidInput,
			"knowledge text produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, domain.Wrap(domain.StageEmbed, err)
	}

	store := s.newStore()
	if err := store.Init(len(vectors[0])); err != nil {
		return nil, domain.Wrap(domain.StageRetrieve, err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, domain.Wrap(domain.StageRetrieve, err)
	}

	next := &indexSnapshot{fingerprint: fp, store: store, chunkCount: len(chunks)}
	s.idx.Store(next)
	log.Printf("indexed knowledge text %s: %d chunks (size=%d overlap=%d)", doc.ID, len(chunks), cfg.ChunkSize, cfg.ChunkOverlap)
	return next, nil
}

// fingerprint identifies one index generation by the knowledge text and the
// chunking parameters that shaped it.
func fingerprint(text string, chunkSize, overlap int) string {
	h := sha256.New()
	h.Write([]byte(text))
	fmt.Fprintf(h, "|%d|%d", chunkSize, overlap)
	return hex.EncodeToString(h.Sum(nil))
}
