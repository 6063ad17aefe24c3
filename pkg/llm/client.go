// Package llm provides clients for interacting with Large Language Models.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hotel-insights-go/internal/config"
)

// ChunkHandler 接收流式生成的每个分块，返回错误会中止生成。
type ChunkHandler func(chunk string) error

// Client defines the interface for an LLM client.
type Client interface {
	// Chat 以 role-based 消息调用聊天接口并返回完整回答。
	Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
	// StreamChat 以流式方式调用聊天接口，每个分块交给 onChunk。
	StreamChat(ctx context.Context, messages []Message, gen *GenerationParams, onChunk ChunkHandler) error
}

// 支持的 provider
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// GenerationParamsFromConfig 将配置中的非零值转换为生成参数，全部为零时返回 nil。
func GenerationParamsFromConfig(cfg config.LLMGenerationConfig) *GenerationParams {
	var gp GenerationParams
	if cfg.Temperature != 0 {
		t := cfg.Temperature
		gp.Temperature = &t
	}
	if cfg.TopP != 0 {
		p := cfg.TopP
		gp.TopP = &p
	}
	if cfg.MaxTokens != 0 {
		m := cfg.MaxTokens
		gp.MaxTokens = &m
	}
	if gp.Temperature == nil && gp.TopP == nil && gp.MaxTokens == nil {
		return nil
	}
	return &gp
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaClient(cfg)
	case ProviderOpenAI:
		return NewOpenAICompatibleClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewOpenAICompatibleClient 创建调用 OpenAI 兼容 /chat/completions 接口的客户端。
func NewOpenAICompatibleClient(cfg config.LLMConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *openAICompatibleClient) Chat(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
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

func (c *openAICompatibleClient) StreamChat(ctx context.Context, messages []Message, gen *GenerationParams, onChunk ChunkHandler) error {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   true,
	}
	if gen == nil {
		gen = GenerationParamsFromConfig(c.cfg.Generation)
	}
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read from stream: %w", err)
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			if data == "[DONE]" {
				break
			}

			var chunk chatResponse
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr == nil && len(chunk.Choices) > 0 {
				if content := chunk.Choices[0].Delta.Content; content != "" {
					if err := onChunk(content); err != nil {
						return err
					}
				}
			}
		}

		if err == io.EOF {
			break
		}
	}
	return nil
}
