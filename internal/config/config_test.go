package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRetrievalWithDefaults(t *testing.T) {
	got := Retrieval{}.WithDefaults()
	if got.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", got.ChunkSize, DefaultChunkSize)
	}
	if got.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("ChunkOverlap = %d, want %d", got.ChunkOverlap, DefaultChunkOverlap)
	}
	if got.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want %d", got.TopK, DefaultTopK)
	}
	if got.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %g, want %g", got.Temperature, DefaultTemperature)
	}
	if got.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", got.MaxTokens, DefaultMaxTokens)
	}
}

func TestRetrievalWithDefaults_KeepsOverrides(t *testing.T) {
	got := Retrieval{ChunkSize: 500, TopK: 8}.WithDefaults()
	if got.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want the override 500", got.ChunkSize)
	}
	if got.TopK != 8 {
		t.Errorf("TopK = %d, want the override 8", got.TopK)
	}
	if got.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("ChunkOverlap = %d, want the default %d", got.ChunkOverlap, DefaultChunkOverlap)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Type != "openai" || cfg.Generator.Type != "openai" {
		t.Errorf("default clients = %q/%q, want openai/openai", cfg.Embedder.Type, cfg.Generator.Type)
	}
	if cfg.VectorStore.Type != "memory" {
		t.Errorf("default vector store = %q, want memory", cfg.VectorStore.Type)
	}
	if cfg.Retrieval.ChunkSize != DefaultChunkSize {
		t.Errorf("default chunk size = %d, want %d", cfg.Retrieval.ChunkSize, DefaultChunkSize)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "retrieval:\n  top_k: 6\nvector_store:\n  type: qdrant\n  qdrant:\n    url: http://localhost:6333\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.TopK != 6 {
		t.Errorf("TopK = %d, want 6", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want default %d", cfg.Retrieval.ChunkSize, DefaultChunkSize)
	}
	if cfg.VectorStore.Qdrant.Collection != "isro-knowledge" {
		t.Errorf("qdrant collection = %q, want default", cfg.VectorStore.Qdrant.Collection)
	}
	if cfg.VectorStore.Qdrant.TimeoutSecs != 15 {
		t.Errorf("qdrant timeout = %d, want 15", cfg.VectorStore.Qdrant.TimeoutSecs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.KnowledgeFile = "data/isro.txt"
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.KnowledgeFile != "data/isro.txt" {
		t.Errorf("KnowledgeFile = %q", got.KnowledgeFile)
	}
	if got.Retrieval != want.Retrieval {
		t.Errorf("Retrieval = %+v, want %+v", got.Retrieval, want.Retrieval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ISRO_BOT_CHAT_MODEL", "gpt-4o")
	t.Setenv("ISRO_BOT_KNOWLEDGE_FILE", "env.txt")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generator.OpenAI.Model != "gpt-4o" {
		t.Errorf("chat model = %q, want env override", cfg.Generator.OpenAI.Model)
	}
	if cfg.KnowledgeFile != "env.txt" {
		t.Errorf("knowledge file = %q, want env override", cfg.KnowledgeFile)
	}
}
