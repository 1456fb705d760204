package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aaryapoyrekar/isro-bot/internal/config"
	"github.com/aaryapoyrekar/isro-bot/internal/domain"
	"github.com/aaryapoyrekar/isro-bot/internal/generation"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/memory"
)

const testKnowledge = `INSAT-3D is a meteorological satellite. It provides imaging and sounding services from geostationary orbit.

PSLV is the workhorse of the Indian launch fleet. It has flown dozens of missions since 1993.

Chandrayaan-3 landed near the lunar south pole in August 2023. The lander was named Vikram and the rover Pragyan.

Aditya-L1 is India's first dedicated solar observatory. It studies the solar corona from a halo orbit.`

// fakeEmbedder produces deterministic keyword-count vectors, so retrieval
// ranking in tests is predictable without a real embedding service.
type fakeEmbedder struct {
	embedCalls int
	batchCalls int
	fail       error
}

var fakeKeywords = []string{"insat", "pslv", "chandrayaan", "aditya"}

func (f *fakeEmbedder) vector(text string) []float64 {
	lower := strings.ToLower(text)
	v := make([]float64, len(fakeKeywords)+1)
	v[len(fakeKeywords)] = 0.1 // keeps every vector non-zero
	for i, kw := range fakeKeywords {
		v[i] = float64(strings.Count(lower, kw))
	}
	return v
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return len(fakeKeywords) + 1 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.embedCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	f.batchCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

type fakeGenerator struct {
	calls      int
	lastPrompt string
	reply      string
	fail       error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts generation.Options) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.fail != nil {
		return "", f.fail
	}
	return f.reply, nil
}

func newTestService(emb *fakeEmbedder, gen *fakeGenerator) *RAGService {
	return NewRAGService(emb, gen, func() vectorstore.Storage { return memory.NewStorage() }, nil)
}

func TestAnswerGroundsOnRetrievedContext(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "INSAT-3D is an Indian weather satellite in geostationary orbit."}
	svc := newTestService(emb, gen)

	cfg := config.Retrieval{ChunkSize: 120, ChunkOverlap: 30, IncludeMetadata: true}
	res, err := svc.Answer(context.Background(), testKnowledge, "What is INSAT-3D used for?", cfg)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer != gen.reply {
		t.Errorf("answer = %q, want generator reply", res.Answer)
	}
	if !strings.Contains(gen.lastPrompt, "INSAT-3D is a meteorological satellite.") {
		t.Errorf("prompt does not contain the relevant chunk:\n%s", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "[Context 1]") {
		t.Errorf("prompt missing labeled context block:\n%s", gen.lastPrompt)
	}
	if res.Metadata == nil {
		t.Fatal("metadata requested but nil")
	}
	if res.Metadata.ChunkSize != 120 || res.Metadata.ChunkOverlap != 30 {
		t.Errorf("metadata echoes ChunkSize=%d ChunkOverlap=%d, want 120/30",
			res.Metadata.ChunkSize, res.Metadata.ChunkOverlap)
	}
	if res.Metadata.TopK != config.DefaultTopK {
		t.Errorf("metadata TopK = %d, want default %d", res.Metadata.TopK, config.DefaultTopK)
	}
	if res.Metadata.ChunksRetrieved <= 0 || res.Metadata.ChunksRetrieved > res.Metadata.ChunksTotal {
		t.Errorf("retrieved %d of %d chunks", res.Metadata.ChunksRetrieved, res.Metadata.ChunksTotal)
	}
	if res.Metadata.RequestID == "" {
		t.Error("metadata RequestID is empty")
	}
}

func TestAnswerMetadataGate(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestService(emb, gen)

	res, err := svc.Answer(context.Background(), testKnowledge, "what is pslv", config.Retrieval{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Metadata != nil {
		t.Error("metadata present without IncludeMetadata")
	}

	adv, err := svc.AnswerAdvanced(context.Background(), testKnowledge, "what is pslv", config.Retrieval{})
	if err != nil {
		t.Fatalf("AnswerAdvanced: %v", err)
	}
	if adv.Metadata == nil {
		t.Fatal("AnswerAdvanced returned nil metadata")
	}
	if adv.Metadata.ChunkSize != config.DefaultChunkSize || adv.Metadata.TopK != config.DefaultTopK {
		t.Errorf("defaults not echoed: ChunkSize=%d TopK=%d", adv.Metadata.ChunkSize, adv.Metadata.TopK)
	}
}

func TestAnswerValidation(t *testing.T) {
	tests := []struct {
		name      string
		knowledge string
		query     string
		cfg       config.Retrieval
	}{
		{"empty knowledge", "   ", "what is insat", config.Retrieval{}},
		{"empty query", testKnowledge, "", config.Retrieval{}},
		{"negative topK", testKnowledge, "q", config.Retrieval{TopK: -1}},
		{"temperature out of range", testKnowledge, "q", config.Retrieval{Temperature: 1.5}},
		{"negative max tokens", testKnowledge, "q", config.Retrieval{MaxTokens: -5}},
		{"overlap >= chunk size", testKnowledge, "q", config.Retrieval{ChunkSize: 100, ChunkOverlap: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &fakeEmbedder{}
			gen := &fakeGenerator{reply: "ok"}
			svc := newTestService(emb, gen)

			_, err := svc.Answer(context.Background(), tt.knowledge, tt.query, tt.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := domain.KindOf(err); got != domain.KindInvalidInput {
				t.Errorf("kind = %q, want %q", got, domain.KindInvalidInput)
			}
			if emb.embedCalls+emb.batchCalls != 0 {
				t.Errorf("embedder called %d times before validation failure", emb.embedCalls+emb.batchCalls)
			}
			if gen.calls != 0 {
				t.Errorf("generator called %d times before validation failure", gen.calls)
			}
		})
	}
}

func TestAnswerBatchIsolation(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestService(emb, gen)

	queries := []string{"what is insat", "", "what is chandrayaan"}
	outcomes := svc.AnswerBatch(context.Background(), testKnowledge, queries, config.Retrieval{})
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	wantStatus := []string{domain.BatchStatusSuccess, domain.BatchStatusError, domain.BatchStatusSuccess}
	for i, out := range outcomes {
		if out.Status != wantStatus[i] {
			t.Errorf("outcome %d status = %q, want %q", i, out.Status, wantStatus[i])
		}
		if out.Index != i || out.Query != queries[i] {
			t.Errorf("outcome %d has Index=%d Query=%q", i, out.Index, out.Query)
		}
	}
	if outcomes[0].Answer != "ok" || outcomes[2].Answer != "ok" {
		t.Errorf("successful outcomes missing answers: %q, %q", outcomes[0].Answer, outcomes[2].Answer)
	}
	if outcomes[1].Error != "query must be a non-empty string" {
		t.Errorf("failed outcome error = %q", outcomes[1].Error)
	}
}

func TestIndexReuseAcrossQueries(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestService(emb, gen)

	for _, q := range []string{"what is insat", "what is pslv"} {
		if _, err := svc.Answer(context.Background(), testKnowledge, q, config.Retrieval{}); err != nil {
			t.Fatalf("Answer(%q): %v", q, err)
		}
	}
	if emb.batchCalls != 1 {
		t.Errorf("knowledge embedded %d times for an unchanged document, want 1", emb.batchCalls)
	}
	if emb.embedCalls != 2 {
		t.Errorf("query embedded %d times, want 2", emb.embedCalls)
	}

	// Changing the chunking parameters invalidates the index.
	cfg := config.Retrieval{ChunkSize: 120, ChunkOverlap: 30}
	if _, err := svc.Answer(context.Background(), testKnowledge, "what is aditya", cfg); err != nil {
		t.Fatalf("Answer after reconfigure: %v", err)
	}
	if emb.batchCalls != 2 {
		t.Errorf("knowledge embedded %d times after chunking change, want 2", emb.batchCalls)
	}
}

func TestIndexRebuildOnNewKnowledge(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestService(emb, gen)

	if _, err := svc.Answer(context.Background(), testKnowledge, "what is insat", config.Retrieval{}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	other := "GSLV Mk III, now LVM3, is India's heaviest operational launch vehicle."
	if _, err := svc.Answer(context.Background(), other, "what is lvm3", config.Retrieval{}); err != nil {
		t.Fatalf("Answer with new knowledge: %v", err)
	}
	if emb.batchCalls != 2 {
		t.Errorf("knowledge embedded %d times for two distinct documents, want 2", emb.batchCalls)
	}
}

func TestRespondMapsFailuresToSafeMessages(t *testing.T) {
	emb := &fakeEmbedder{fail: errors.New("googleapi: Error 429: quota exceeded for this project")}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestService(emb, gen)

	res := svc.Respond(context.Background(), testKnowledge, "what is insat", config.Retrieval{})
	if strings.Contains(res.Answer, "googleapi") || strings.Contains(res.Answer, "project") {
		t.Errorf("raw provider error leaked to user: %q", res.Answer)
	}
	if res.Answer != domain.UserMessage(domain.NewError("", domain.KindQuota, nil)) {
		t.Errorf("answer = %q, want the quota message", res.Answer)
	}
}

func TestAnswerClassifiesGenerationFailure(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{fail: domain.Errorf(domain.StageGenerate, domain.KindEmptyResponse, "model returned an empty message")}
	svc := newTestService(emb, gen)

	_, err := svc.Answer(context.Background(), testKnowledge, "what is insat", config.Retrieval{})
	if err == nil {
		t.Fatal("expected generation error")
	}
	if got := domain.KindOf(err); got != domain.KindEmptyResponse {
		t.Errorf("kind = %q, want %q", got, domain.KindEmptyResponse)
	}
}
