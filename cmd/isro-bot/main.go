package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/aaryapoyrekar/isro-bot/internal/config"
	"github.com/aaryapoyrekar/isro-bot/internal/embedding"
	embopenai "github.com/aaryapoyrekar/isro-bot/internal/embedding/openai"
	"github.com/aaryapoyrekar/isro-bot/internal/generation"
	genopenai "github.com/aaryapoyrekar/isro-bot/internal/generation/openai"
	"github.com/aaryapoyrekar/isro-bot/internal/prompt"
	"github.com/aaryapoyrekar/isro-bot/internal/service"
	"github.com/aaryapoyrekar/isro-bot/internal/tui"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/chromem"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/memory"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to config YAML (default: ./config.yaml, then ~/.config/isro-bot/config.yaml)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	knowledgePath := cfg.KnowledgeFile
	if flag.NArg() > 0 {
		knowledgePath = flag.Arg(0)
	}
	if knowledgePath == "" {
		fmt.Println("Usage: isro-bot [--config=config.yaml] knowledge.txt")
		os.Exit(1)
	}
	knowledge, err := os.ReadFile(knowledgePath)
	if err != nil {
		log.Fatalf("failed to read knowledge file: %v", err)
	}

	svc, err := assemble(cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	m := tui.New(svc, string(knowledge), cfg.Retrieval)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

// assemble wires the pipeline components from config.
func assemble(cfg *config.AppConfig) (*service.RAGService, error) {
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "openai", "":
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var gen generation.Generator
	switch cfg.Generator.Type {
	case "openai", "":
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:   cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv: cfg.Generator.OpenAI.APIKeyEnv,
			Model:     cfg.Generator.OpenAI.Model,
			Timeout:   time.Duration(cfg.Generator.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	var newStore func() vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		newStore = func() vectorstore.Storage { return memory.NewStorage() }
	case "chromem":
		newStore = func() vectorstore.Storage { return chromem.NewStorage() }
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qcfg := qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		}
		newStore = func() vectorstore.Storage { return qdrant.NewStorage(qcfg) }
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	return service.NewRAGService(emb, gen, newStore, prompt.NewBuilder()), nil
}
