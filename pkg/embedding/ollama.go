package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"hotel-insights-go/internal/config"
)

type ollamaClient struct {
	model  string
	client *api.Client
}

// NewOllamaClient 创建一个通过 Ollama /api/embed 生成向量的客户端。
func NewOllamaClient(cfg config.EmbeddingConfig) (Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}
	return &ollamaClient{
		model:  cfg.Model,
		client: api.NewClient(base, &http.Client{Timeout: 60 * time.Second}),
	}, nil
}

func (c *ollamaClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("received empty embedding from ollama")
	}
	return resp.Embeddings[0], nil
}
