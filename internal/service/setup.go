package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/corpus"
	"docqa/internal/corpus/sqlite"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/generation"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/vectorindex"
)

// FromConfig builds a Service from the application config. The generator is
// only created when withGenerator is set, so retrieval works without an API key.
func FromConfig(cfg *config.AppConfig, log *zap.SugaredLogger, withGenerator bool) (*Service, error) {
	opts := []Option{
		WithLogger(log),
		WithStrategy(cfg.Retrieval.Strategy),
		WithTopK(cfg.Retrieval.TopK),
		WithBudget(cfg.Retrieval.ContextBudget),
		WithTemplate(generation.Template(cfg.Generator.Template)),
	}
	if withGenerator {
		gen, err := NewGenerator(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithGenerator(gen))
	}
	return New(ConfigLoader(cfg), opts...), nil
}

// NewGenerator creates the configured generation gateway.
func NewGenerator(cfg *config.AppConfig) (domain.Generator, error) {
	g := cfg.Generator
	gw, err := genopenai.NewGateway(genopenai.Config{
		BaseURL:     g.BaseURL,
		APIKeyEnv:   g.APIKeyEnv,
		Model:       g.Model,
		Temperature: g.Temperature,
		Timeout:     time.Duration(g.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// ConfigLoader loads the catalog, encoder and corpus store named by cfg.
func ConfigLoader(cfg *config.AppConfig) Loader {
	return func(ctx context.Context) (*Resources, error) {
		cat, err := vectorindex.OpenCatalog(ctx, cfg.Index.Path, cfg.Index.IDsPath)
		if err != nil {
			return nil, err
		}
		enc, err := NewEncoder(cfg)
		if err != nil {
			return nil, err
		}
		store, closeFn, err := OpenStore(cfg)
		if err != nil {
			return nil, err
		}
		return &Resources{Encoder: enc, Catalog: cat, Store: store, Close: closeFn}, nil
	}
}

// NewEncoder loads the encoder used at query time. For tfidf this is the
// model saved by the last build.
func NewEncoder(cfg *config.AppConfig) (embedding.Encoder, error) {
	if cfg.Encoder.Type == "openai" {
		c, err := NewOpenAIEncoder(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	m, err := tfidf.LoadModel(cfg.Encoder.TFIDF.ModelPath)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewOpenAIEncoder creates the remote embeddings client.
func NewOpenAIEncoder(cfg *config.AppConfig) (*openai.Client, error) {
	o := cfg.Encoder.OpenAI
	if o == nil {
		o = &config.OpenAIEncoderConfig{}
	}
	return openai.NewClient(openai.Config{
		BaseURL:     o.BaseURL,
		APIKeyEnv:   o.APIKeyEnv,
		Model:       o.Model,
		Timeout:     time.Duration(o.TimeoutSecs) * time.Second,
		BatchSize:   o.BatchSize,
		Concurrency: o.Concurrency,
	})
}

// OpenStore opens the configured corpus store. A sqlite database must already
// exist; only Build creates one.
func OpenStore(cfg *config.AppConfig) (domain.CorpusStore, func() error, error) {
	if cfg.Corpus.Type != "sqlite" {
		return corpus.NewDirStore(cfg.Corpus.Dir, cfg.Corpus.Ext), nil, nil
	}
	if _, err := os.Stat(cfg.Corpus.SQLitePath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, domain.Errorf(domain.KindMissingArtifact, "service.OpenStore",
			"corpus database not found at %s; run `docqa build` first", cfg.Corpus.SQLitePath)
	}
	db, err := sqlite.Open(cfg.Corpus.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// Build indexes the configured corpus and writes every artifact the query
// path needs. A sqlite corpus is imported into a staged database that replaces
// the live one only after the index has been saved.
func Build(ctx context.Context, cfg *config.AppConfig, log *zap.SugaredLogger) (*vectorindex.Catalog, error) {
	var store domain.CorpusStore = corpus.NewDirStore(cfg.Corpus.Dir, cfg.Corpus.Ext)
	var staged *sqlite.Store
	stagedPath := cfg.Corpus.SQLitePath + ".staging"
	if cfg.Corpus.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Corpus.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		if err := os.Remove(stagedPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		db, err := sqlite.Open(stagedPath)
		if err != nil {
			return nil, err
		}
		staged = db
		defer func() {
			if staged != nil {
				_ = staged.Close()
				_ = os.Remove(stagedPath)
			}
		}()
		n, err := db.Import(ctx, store)
		if err != nil {
			return nil, err
		}
		log.Infow("imported corpus", "documents", n, "database", stagedPath)
		store = db
	}

	var cat *vectorindex.Catalog
	switch cfg.Encoder.Type {
	case "openai":
		enc, err := NewOpenAIEncoder(cfg)
		if err != nil {
			return nil, err
		}
		if cat, err = BuildIndex(ctx, store, enc, log); err != nil {
			return nil, err
		}
	default:
		model, c, err := BuildTFIDF(ctx, store, log)
		if err != nil {
			return nil, err
		}
		if err := model.Save(cfg.Encoder.TFIDF.ModelPath); err != nil {
			return nil, err
		}
		cat = c
	}
	if err := cat.Save(cfg.Index.Path, cfg.Index.IDsPath); err != nil {
		return nil, err
	}
	if staged != nil {
		if err := staged.Close(); err != nil {
			return nil, err
		}
		staged = nil
		if err := os.Rename(stagedPath, cfg.Corpus.SQLitePath); err != nil {
			return nil, err
		}
		log.Infow("corpus database replaced", "database", cfg.Corpus.SQLitePath)
	}
	log.Infow("artifacts written", "index", cfg.Index.Path, "ids", cfg.Index.IDsPath)
	return cat, nil
}
