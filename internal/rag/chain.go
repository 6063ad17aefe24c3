package rag

import (
	"context"
	"fmt"
	"strings"

	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/embedding"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/llm"
	"hotel-insights-go/pkg/log"
)

// DefaultTopK 是每次检索的命中数。
const DefaultTopK = 4

// Options 配置一条问答链。
type Options struct {
	TopK       int
	Prompt     Prompt
	Condense   bool
	Generation *llm.GenerationParams
}

// Result 是一次问答的结果。
type Result struct {
	Answer string
	// Query 是实际用于检索的问题（可能经过改写）。
	Query   string
	Sources []vectorindex.Hit
}

// Chain 绑定一个索引快照；索引替换时随之整体替换。
type Chain struct {
	index    vectorindex.Index
	embedder embedding.Client
	llm      llm.Client
	opts     Options
}

// NewChain 创建一条问答链。
func NewChain(index vectorindex.Index, embedder embedding.Client, llmClient llm.Client, opts Options) *Chain {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Prompt == (Prompt{}) {
		opts.Prompt = DefaultPrompt()
	}
	return &Chain{index: index, embedder: embedder, llm: llmClient, opts: opts}
}

// Retrieve 返回与 query 最相似的洞察句子。
func (c *Chain) Retrieve(ctx context.Context, query string) ([]vectorindex.Hit, error) {
	vector, err := c.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, errs.ErrModelCallFailed.Wrap(fmt.Errorf("embed question: %w", err))
	}
	hits, err := c.index.Search(ctx, vector, c.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// standaloneQuery 在有历史时让模型把追问改写为独立的检索问题。
func (c *Chain) standaloneQuery(ctx context.Context, question string, history []model.ChatMessage) string {
	if !c.opts.Condense || len(history) == 0 {
		return question
	}
	rewritten, err := c.llm.Chat(ctx, condenseMessages(history, question), c.opts.Generation)
	if err != nil {
		log.Warnf("[RAG] 改写问题失败，使用原问题检索: %v", err)
		return question
	}
	if rewritten = strings.TrimSpace(rewritten); rewritten == "" {
		return question
	}
	return rewritten
}

func (c *Chain) prepare(ctx context.Context, question string, history []model.ChatMessage) (string, []vectorindex.Hit, []llm.Message, error) {
	query := c.standaloneQuery(ctx, question, history)
	hits, err := c.Retrieve(ctx, query)
	if err != nil {
		return "", nil, nil, err
	}
	return query, hits, c.opts.Prompt.Compose(hits, history, question), nil
}

// Invoke 执行一次完整问答。
func (c *Chain) Invoke(ctx context.Context, question string, history []model.ChatMessage) (*Result, error) {
	query, hits, msgs, err := c.prepare(ctx, question, history)
	if err != nil {
		return nil, err
	}
	answer, err := c.llm.Chat(ctx, msgs, c.opts.Generation)
	if err != nil {
		return nil, errs.ErrModelCallFailed.Wrap(err)
	}
	return &Result{Answer: strings.TrimSpace(answer), Query: query, Sources: hits}, nil
}

// Stream 与 Invoke 相同，但通过 onChunk 逐块交付答案，返回的 Result 包含完整答案。
func (c *Chain) Stream(ctx context.Context, question string, history []model.ChatMessage, onChunk llm.ChunkHandler) (*Result, error) {
	query, hits, msgs, err := c.prepare(ctx, question, history)
	if err != nil {
		return nil, err
	}

	var answer strings.Builder
	err = c.llm.StreamChat(ctx, msgs, c.opts.Generation, func(chunk string) error {
		answer.WriteString(chunk)
		return onChunk(chunk)
	})
	if err != nil {
		return nil, errs.ErrModelCallFailed.Wrap(err)
	}
	return &Result{Answer: strings.TrimSpace(answer.String()), Query: query, Sources: hits}, nil
}
