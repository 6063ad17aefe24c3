// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hotel-insights-go/internal/insight"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/rag"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/embedding"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/llm"
	"hotel-insights-go/pkg/log"
)

// Snapshot 是一次成功刷新的全部产物。请求开始时读取一次，之后只使用同一个快照。
type Snapshot struct {
	Version  uint64
	BuiltAt  time.Time
	Insights []model.Insight
	Index    vectorindex.Index
	Chain    *rag.Chain
}

// InsightService 负责生成洞察、构建索引与问答链，并以原子方式发布快照。
type InsightService interface {
	// Refresh 全量重建。失败时保留上一个快照。
	Refresh(ctx context.Context) (*Snapshot, error)
	// Restore 从持久化的索引恢复快照，不调用嵌入模型。
	Restore(ctx context.Context) error
	// Current 返回当前快照，尚未成功构建时为 nil。
	Current() *Snapshot
}

type insightService struct {
	bookingRepo repository.BookingRepository
	embedder    embedding.Client
	llmClient   llm.Client
	builder     vectorindex.Builder
	chainOpts   rag.Options

	mu      sync.Mutex
	version uint64
	current atomic.Pointer[Snapshot]
}

// NewInsightService 创建一个新的 InsightService 实例。
func NewInsightService(bookingRepo repository.BookingRepository, embedder embedding.Client, llmClient llm.Client, builder vectorindex.Builder, chainOpts rag.Options) InsightService {
	return &insightService{
		bookingRepo: bookingRepo,
		embedder:    embedder,
		llmClient:   llmClient,
		builder:     builder,
		chainOpts:   chainOpts,
	}
}

func (s *insightService) Current() *Snapshot {
	return s.current.Load()
}

func (s *insightService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	bookings, err := s.bookingRepo.FindAll(ctx)
	if err != nil {
		return nil, errs.ErrDataSourceUnavailable.Wrap(err)
	}
	if len(bookings) == 0 {
		return nil, errs.ErrNoBookingData
	}

	insights := insight.Summarize(bookings)
	log.Infof("[InsightService] 基于 %d 条预订记录生成了 %d 条洞察", len(bookings), len(insights))

	vectors, err := embedding.EmbedAll(ctx, s.embedder, insight.Texts(insights))
	if err != nil {
		return nil, errs.ErrIndexBuildFailed.Wrap(err)
	}
	index, err := s.builder.Build(ctx, toDocuments(insights), vectors)
	if err != nil {
		return nil, errs.ErrIndexBuildFailed.Wrap(err)
	}

	snap := s.publish(insights, index)
	log.Infow("[InsightService] 快照已更新",
		"version", snap.Version,
		"insights", len(insights),
		"dimension", index.Dimension(),
		"elapsed", time.Since(start).String(),
	)
	return snap, nil
}

func (s *insightService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.builder.Restore(ctx)
	if err != nil {
		if errors.Is(err, vectorindex.ErrNoSnapshot) {
			return err
		}
		return fmt.Errorf("restore index: %w", err)
	}
	snap := s.publish(fromDocuments(index.Documents()), index)
	log.Infof("[InsightService] 已从持久化索引恢复快照: %d 条洞察", len(snap.Insights))
	return nil
}

// publish 在持有 mu 时调用。
func (s *insightService) publish(insights []model.Insight, index vectorindex.Index) *Snapshot {
	s.version++
	snap := &Snapshot{
		Version:  s.version,
		BuiltAt:  time.Now().UTC(),
		Insights: insights,
		Index:    index,
		Chain:    rag.NewChain(index, s.embedder, s.llmClient, s.chainOpts),
	}
	s.current.Store(snap)
	return snap
}

func toDocuments(insights []model.Insight) []vectorindex.Document {
	docs := make([]vectorindex.Document, len(insights))
	for i, in := range insights {
		docs[i] = vectorindex.Document{
			ID:   in.ID,
			Text: in.Text,
			Metadata: map[string]string{
				"category": in.Category,
				"type":     in.Type,
			},
		}
	}
	return docs
}

func fromDocuments(docs []vectorindex.Document) []model.Insight {
	insights := make([]model.Insight, len(docs))
	for i, d := range docs {
		insights[i] = model.Insight{
			ID:       d.ID,
			Category: d.Metadata["category"],
			Text:     d.Text,
			Type:     d.Metadata["type"],
		}
	}
	return insights
}
