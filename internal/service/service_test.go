package service

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"hotel-insights-go/internal/rag"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/database"
	"hotel-insights-go/pkg/llm"
)

// hashEmbedder 把文本按词哈希到固定维度，结果确定。
type hashEmbedder struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (e *hashEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, errors.New("embedding model offline")
	}
	v := make([]float32, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%16]++
	}
	return v, nil
}

type echoLLM struct {
	mu    sync.Mutex
	calls [][]llm.Message
}

func (l *echoLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	l.mu.Lock()
	l.calls = append(l.calls, messages)
	l.mu.Unlock()
	return "answer: " + messages[len(messages)-1].Content, nil
}

func (l *echoLLM) StreamChat(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, onChunk llm.ChunkHandler) error {
	answer, _ := l.Chat(ctx, messages, gen)
	for _, part := range strings.SplitAfter(answer, " ") {
		if err := onChunk(part); err != nil {
			return err
		}
	}
	return nil
}

type fixture struct {
	bookings repository.BookingRepository
	embedder *hashEmbedder
	llm      *echoLLM
	insights InsightService
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	bookings := repository.NewBookingRepository(db)
	require.NoError(t, bookings.AutoMigrate())

	f := &fixture{
		bookings: bookings,
		embedder: &hashEmbedder{},
		llm:      &echoLLM{},
		dir:      t.TempDir(),
	}
	f.insights = f.newInsightService()
	return f
}

func (f *fixture) newInsightService() InsightService {
	return NewInsightService(f.bookings, f.embedder, f.llm, vectorindex.NewLocalBuilder(f.dir, nil), rag.Options{TopK: 3})
}

func (f *fixture) seed(t *testing.T, n int) {
	t.Helper()
	gen := NewBookingService(f.bookings, rand.New(rand.NewSource(42)))
	written, err := gen.GenerateN(context.Background(), n)
	require.NoError(t, err)
	require.Equal(t, n, written)
}
