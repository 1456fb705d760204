package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/aaryapoyrekar/isro-bot/internal/config"
	"github.com/aaryapoyrekar/isro-bot/internal/domain"
	"github.com/aaryapoyrekar/isro-bot/internal/embedding"
	embopenai "github.com/aaryapoyrekar/isro-bot/internal/embedding/openai"
	"github.com/aaryapoyrekar/isro-bot/internal/generation"
	genopenai "github.com/aaryapoyrekar/isro-bot/internal/generation/openai"
	"github.com/aaryapoyrekar/isro-bot/internal/prompt"
	"github.com/aaryapoyrekar/isro-bot/internal/service"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/chromem"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/memory"
	"github.com/aaryapoyrekar/isro-bot/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		query     string
		queryFile string
		verbose   bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to config YAML")
	flag.StringVar(&query, "q", "", "Single question to ask")
	flag.StringVar(&queryFile, "f", "", "File with one question per line (batch mode)")
	flag.BoolVar(&verbose, "v", false, "Print retrieval metadata")
	flag.Parse()

	if query == "" && queryFile == "" {
		fmt.Println("Usage: isro-ask [--config=config.yaml] -q \"question\" [knowledge.txt]")
		fmt.Println("       isro-ask [--config=config.yaml] -f questions.txt [knowledge.txt]")
		os.Exit(1)
	}

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
		log.Fatalf("no knowledge file given (flag argument or knowledge_file in config)")
	}
	knowledge, err := os.ReadFile(knowledgePath)
	if err != nil {
		log.Fatalf("failed to read knowledge file: %v", err)
	}

	svc, err := assemble(cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	ctx := context.Background()
	if queryFile != "" {
		runBatch(ctx, svc, string(knowledge), queryFile, cfg.Retrieval)
		return
	}

	res, err := svc.AnswerAdvanced(ctx, string(knowledge), query, cfg.Retrieval)
	if err != nil {
		log.Printf("answer failed: %v", err)
		color.Red("%s", domain.UserMessage(err))
		os.Exit(1)
	}
	color.Cyan("Q: %s", query)
	fmt.Println(res.Answer)
	if verbose && res.Metadata != nil {
		printMetadata(res.Metadata)
	}
}

func runBatch(ctx context.Context, svc *service.RAGService, knowledge, queryFile string, cfg config.Retrieval) {
	f, err := os.Open(queryFile)
	if err != nil {
		log.Fatalf("failed to open query file: %v", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		queries = append(queries, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("failed to read query file: %v", err)
	}
	if len(queries) == 0 {
		log.Fatalf("query file is empty")
	}

	outcomes := svc.AnswerBatch(ctx, knowledge, queries, cfg)
	failed := 0
	for _, out := range outcomes {
		color.Cyan("[%d] %s", out.Index+1, out.Query)
		if out.Status == domain.BatchStatusError {
			failed++
			color.Red("error: %s", out.Error)
		} else {
			fmt.Println(out.Answer)
		}
		fmt.Println()
	}
	color.Green("%d/%d answered", len(outcomes)-failed, len(outcomes))
}

func printMetadata(m *domain.AnswerMetadata) {
	dim := color.New(color.Faint)
	dim.Printf("request %s: %d/%d chunks, context %d chars, %dms\n",
		m.RequestID, m.ChunksRetrieved, m.ChunksTotal, m.ContextLength, m.ElapsedMS)
	dim.Printf("config: chunk_size=%d overlap=%d top_k=%d temperature=%.2f max_tokens=%d\n",
		m.ChunkSize, m.ChunkOverlap, m.TopK, m.Temperature, m.MaxTokens)
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
