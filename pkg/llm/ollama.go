package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"hotel-insights-go/internal/config"
)

type ollamaClient struct {
	cfg    config.LLMConfig
	client *api.Client
}

// NewOllamaClient 创建一个通过 Ollama /api/chat 生成回答的客户端。
func NewOllamaClient(cfg config.LLMConfig) (Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}
	return &ollamaClient{
		cfg:    cfg,
		client: api.NewClient(base, http.DefaultClient),
	}, nil
}

func (c *ollamaClient) Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	var answer strings.Builder
	err := c.StreamChat(ctx, messages, gen, func(chunk string) error {
		answer.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer.String(), nil
}

func (c *ollamaClient) StreamChat(ctx context.Context, messages []Message, gen *GenerationParams, onChunk ChunkHandler) error {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := true
	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options:  ollamaOptions(gen, c.cfg.Generation),
	}

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return onChunk(resp.Message.Content)
	})
	if err != nil {
		return fmt.Errorf("ollama chat failed: %w", err)
	}
	return nil
}

func ollamaOptions(gen *GenerationParams, fallback config.LLMGenerationConfig) map[string]interface{} {
	if gen == nil {
		gen = GenerationParamsFromConfig(fallback)
	}
	if gen == nil {
		return nil
	}
	opts := make(map[string]interface{})
	if gen.Temperature != nil {
		opts["temperature"] = *gen.Temperature
	}
	if gen.TopP != nil {
		opts["top_p"] = *gen.TopP
	}
	if gen.MaxTokens != nil {
		opts["num_predict"] = *gen.MaxTokens
	}
	return opts
}
