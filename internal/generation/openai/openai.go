package openai

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// Config configures the chat-completion gateway.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Gateway sends prompts to an OpenAI-compatible chat completions endpoint.
// Calls are never retried.
type Gateway struct {
	api         *goopenai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGateway creates a gateway; a missing API key is a startup error.
func NewGateway(cfg Config) (*Gateway, error) {
	const op = "openai.NewGateway"
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Errorf(domain.KindGeneration, op, "missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	apiCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{}
	return &Gateway{
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Generate returns the first completion choice for prompt.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	const op = "openai.Generate"
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", domain.Wrap(domain.KindGeneration, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Errorf(domain.KindGeneration, op, "no choices returned")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", domain.Errorf(domain.KindGeneration, op, "empty answer returned")
	}
	return answer, nil
}
