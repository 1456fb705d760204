package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Documented defaults for the retrieval pipeline. Zero-valued fields in a
// caller-supplied Retrieval mean "use the default".
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 4
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1024
)

// Retrieval holds the per-query pipeline parameters. Any field may be
// overridden per call; defaults apply otherwise via WithDefaults.
type Retrieval struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	TopK            int     `yaml:"top_k"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	IncludeMetadata bool    `yaml:"include_metadata"`
}

// WithDefaults returns a copy with every zero-valued field replaced by its
// documented default. Applied once at pipeline entry.
func (r Retrieval) WithDefaults() Retrieval {
	if r.ChunkSize == 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.ChunkOverlap == 0 {
		r.ChunkOverlap = DefaultChunkOverlap
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}

// DefaultRetrieval returns the documented default configuration.
func DefaultRetrieval() Retrieval {
	return Retrieval{}.WithDefaults()
}

// OpenAIConfig holds connection details for an OpenAI-compatible service.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedding client.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the generation client.
type GeneratorConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	KnowledgeFile string            `yaml:"knowledge_file"`
	Embedder      EmbedderConfig    `yaml:"embedder"`
	Generator     GeneratorConfig   `yaml:"generator"`
	VectorStore   VectorStoreConfig `yaml:"vector_store"`
	Retrieval     Retrieval         `yaml:"retrieval"`
}

// envOverrides take precedence over the YAML file, so deployments can
// retarget models or knowledge files without editing the config.
type envOverrides struct {
	KnowledgeFile string `env:"ISRO_BOT_KNOWLEDGE_FILE"`
	BaseURL       string `env:"ISRO_BOT_BASE_URL"`
	EmbedModel    string `env:"ISRO_BOT_EMBED_MODEL"`
	ChatModel     string `env:"ISRO_BOT_CHAT_MODEL"`
}

// Load reads a config from the specified path. If the file does not exist,
// returns defaults. Environment overrides are applied last.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/isro-bot/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "isro-bot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai", OpenAI: &OpenAIConfig{}},
		Generator:   GeneratorConfig{Type: "openai", OpenAI: &OpenAIConfig{}},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Retrieval:   DefaultRetrieval(),
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	cfg.Retrieval = cfg.Retrieval.WithDefaults()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIConfig{}
	}
	if cfg.Generator.OpenAI == nil {
		cfg.Generator.OpenAI = &OpenAIConfig{}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "isro-knowledge"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return
	}
	if ov.KnowledgeFile != "" {
		cfg.KnowledgeFile = ov.KnowledgeFile
	}
	if ov.BaseURL != "" {
		cfg.Embedder.OpenAI.BaseURL = ov.BaseURL
		cfg.Generator.OpenAI.BaseURL = ov.BaseURL
	}
	if ov.EmbedModel != "" {
		cfg.Embedder.OpenAI.Model = ov.EmbedModel
	}
	if ov.ChatModel != "" {
		cfg.Generator.OpenAI.Model = ov.ChatModel
	}
}
