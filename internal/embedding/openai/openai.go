package openai

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

// Client is an OpenAI-compatible embeddings encoder.
type Client struct {
	api         *goopenai.Client
	model       string
	batchSize   int
	concurrency int

	mu        sync.RWMutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	BatchSize   int
	Concurrency int
	// Dimension may be left zero; it is then learned from the first response.
	Dimension int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	const op = "openai.NewClient"
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Errorf(domain.KindEncoding, op, "missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	apiCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		dimension:   cfg.Dimension,
	}, nil
}

// ModelInfo returns the embedding model identity.
func (c *Client) ModelInfo() string { return "openai-" + c.model }

// Dimension returns the vector length, or 0 before the first response when unconfigured.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Encode embeds texts in batches sent concurrently; output order follows input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			return c.encodeBatch(gctx, texts[start:end], out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) encodeBatch(ctx context.Context, texts []string, dst [][]float64) error {
	const op = "openai.Encode"
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return domain.Wrap(domain.KindEncoding, op, err)
	}
	if len(resp.Data) != len(texts) {
		return domain.Errorf(domain.KindEncoding, op, "got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return domain.Errorf(domain.KindEncoding, op, "embedding index %d out of range", d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float64(x)
		}
		if err := c.observeDimension(len(v)); err != nil {
			return err
		}
		dst[d.Index] = v
	}
	return nil
}

func (c *Client) observeDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
	}
	if n != c.dimension {
		return domain.Errorf(domain.KindDimensionMismatch, "openai.Encode", "model returned dimension %d, expected %d", n, c.dimension)
	}
	return nil
}
