package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the cleaned documents.
type CorpusConfig struct {
	Type       string `yaml:"type"`
	Dir        string `yaml:"dir"`
	Ext        string `yaml:"ext"`
	SQLitePath string `yaml:"sqlite_path"`
}

// TFIDFConfig holds where the fitted TF-IDF model is stored.
type TFIDFConfig struct {
	ModelPath string `yaml:"model_path"`
}

// OpenAIEncoderConfig holds configuration for the OpenAI-compatible encoder.
type OpenAIEncoderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

// EncoderConfig selects and configures the text encoder implementation.
type EncoderConfig struct {
	Type   string               `yaml:"type"`
	TFIDF  TFIDFConfig          `yaml:"tfidf"`
	OpenAI *OpenAIEncoderConfig `yaml:"openai,omitempty"`
}

// IndexConfig locates the persisted index artifacts.
type IndexConfig struct {
	Path    string `yaml:"path"`
	IDsPath string `yaml:"ids_path"`
}

// RetrievalConfig controls ranking and the context window.
type RetrievalConfig struct {
	Strategy      string `yaml:"strategy"`
	TopK          int    `yaml:"top_k"`
	ContextBudget int    `yaml:"context_budget"`
}

// GeneratorConfig configures the external generation gateway.
type GeneratorConfig struct {
	Type        string  `yaml:"type"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Template    string  `yaml:"template,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Encoder   EncoderConfig   `yaml:"encoder"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Generator GeneratorConfig `yaml:"generator"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./docqa.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it returns defaults without writing anything.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docqa.yaml"
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
	return defaultConfig(), "", nil
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

// Validate rejects values no component can work with.
func (c *AppConfig) Validate() error {
	switch c.Corpus.Type {
	case "dir", "sqlite":
	default:
		return fmt.Errorf("unknown corpus type: %s", c.Corpus.Type)
	}
	switch c.Encoder.Type {
	case "tfidf", "openai":
	default:
		return fmt.Errorf("unknown encoder: %s", c.Encoder.Type)
	}
	switch c.Retrieval.Strategy {
	case "vector", "title":
	default:
		return fmt.Errorf("unknown retrieval strategy: %s", c.Retrieval.Strategy)
	}
	if c.Generator.Type != "openai" {
		return fmt.Errorf("unknown generator: %s", c.Generator.Type)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.ContextBudget < 1 {
		return fmt.Errorf("retrieval.context_budget must be at least 1, got %d", c.Retrieval.ContextBudget)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Type == "" {
		cfg.Corpus.Type = "dir"
	}
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = filepath.Join("docs", "cleaned")
	}
	if cfg.Corpus.Ext == "" {
		cfg.Corpus.Ext = ".txt"
	}
	if cfg.Corpus.SQLitePath == "" {
		cfg.Corpus.SQLitePath = filepath.Join("data", "corpus.db")
	}
	if cfg.Encoder.Type == "" {
		cfg.Encoder.Type = "tfidf"
	}
	if cfg.Encoder.TFIDF.ModelPath == "" {
		cfg.Encoder.TFIDF.ModelPath = filepath.Join("data", "tfidf.yaml")
	}
	if cfg.Encoder.Type == "openai" {
		if cfg.Encoder.OpenAI == nil {
			cfg.Encoder.OpenAI = &OpenAIEncoderConfig{}
		}
		o := cfg.Encoder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
		if o.Concurrency == 0 {
			o.Concurrency = 4
		}
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join("data", "index.gob")
	}
	if cfg.Index.IDsPath == "" {
		cfg.Index.IDsPath = filepath.Join("data", "ids.json")
	}
	if cfg.Retrieval.Strategy == "" {
		cfg.Retrieval.Strategy = "vector"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = 8000
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
