package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hotel-insights-go/internal/config"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/llm"
)

// keywordEmbedder 把文本映射到 [revenue, cancellation, country] 三个维度。
type keywordEmbedder struct {
	queries []string
	err     error
}

func (e *keywordEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.queries = append(e.queries, text)
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(lower, "revenue") {
		v[0] = 1
	}
	if strings.Contains(lower, "cancel") {
		v[1] = 1
	}
	if strings.Contains(lower, "country") {
		v[2] = 1
	}
	return v, nil
}

type fakeLLM struct {
	calls   [][]llm.Message
	answers []string
	err     error
}

func (f *fakeLLM) next() string {
	if len(f.answers) == 0 {
		return "ok"
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.next(), nil
}

func (f *fakeLLM) StreamChat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, onChunk llm.ChunkHandler) error {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return f.err
	}
	for _, word := range strings.SplitAfter(f.next(), " ") {
		if err := onChunk(word); err != nil {
			return err
		}
	}
	return nil
}

func testIndex(t *testing.T) vectorindex.Index {
	t.Helper()
	idx, err := vectorindex.NewFlatIndex(
		[]vectorindex.Document{
			{ID: "r", Text: "Date: Jul 1, 2015 - Total revenue is 521.00."},
			{ID: "c", Text: "On Jul 1, 2015, cancellation rate was 50.00%."},
			{ID: "g", Text: "Country PRT had 2 bookings."},
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)
	return idx
}

func TestChain_Invoke(t *testing.T) {
	chatModel := &fakeLLM{answers: []string{"  Revenue was 521.00 in July 2015. "}}
	chain := NewChain(testIndex(t), &keywordEmbedder{}, chatModel, Options{TopK: 1})

	res, err := chain.Invoke(context.Background(), "What was the revenue in July 2015?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Revenue was 521.00 in July 2015.", res.Answer)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "r", res.Sources[0].ID)

	require.Len(t, chatModel.calls, 1)
	msgs := chatModel.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, InsufficientContextReply)
	assert.Contains(t, msgs[0].Content, "<<REF>>\n[1] Date: Jul 1, 2015 - Total revenue is 521.00.\n<<END>>")
	assert.Equal(t, llm.Message{Role: "user", Content: "What was the revenue in July 2015?"}, msgs[1])
}

func TestChain_HistoryIsPassedAndQuestionCondensed(t *testing.T) {
	chatModel := &fakeLLM{answers: []string{"cancellation rate in July 2015", "It was 50%."}}
	embedder := &keywordEmbedder{}
	chain := NewChain(testIndex(t), embedder, chatModel, Options{TopK: 1, Condense: true})

	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "Tell me about July 2015"},
		{Role: model.RoleAssistant, Content: "Revenue was 521.00."},
	}
	res, err := chain.Invoke(context.Background(), "and how many were canceled?", history)
	require.NoError(t, err)
	assert.Equal(t, "It was 50%.", res.Answer)
	assert.Equal(t, "cancellation rate in July 2015", res.Query)
	assert.Equal(t, []string{"cancellation rate in July 2015"}, embedder.queries)
	assert.Equal(t, "c", res.Sources[0].ID)

	require.Len(t, chatModel.calls, 2)
	answerCall := chatModel.calls[1]
	require.Len(t, answerCall, 4)
	assert.Equal(t, "Tell me about July 2015", answerCall[1].Content)
	assert.Equal(t, "assistant", answerCall[2].Role)
	assert.Equal(t, "and how many were canceled?", answerCall[3].Content)
}

func TestChain_NoCondenseWithoutHistory(t *testing.T) {
	chatModel := &fakeLLM{}
	chain := NewChain(testIndex(t), &keywordEmbedder{}, chatModel, Options{Condense: true})

	res, err := chain.Invoke(context.Background(), "Which country books most?", nil)
	require.NoError(t, err)
	assert.Len(t, chatModel.calls, 1)
	assert.Len(t, res.Sources, 3)
	assert.Equal(t, "g", res.Sources[0].ID)
}

func TestChain_Stream(t *testing.T) {
	chatModel := &fakeLLM{answers: []string{"Revenue peaked in July."}}
	chain := NewChain(testIndex(t), &keywordEmbedder{}, chatModel, Options{})

	var chunks []string
	res, err := chain.Stream(context.Background(), "revenue?", nil, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue ", "peaked ", "in ", "July."}, chunks)
	assert.Equal(t, "Revenue peaked in July.", res.Answer)
}

func TestChain_Errors(t *testing.T) {
	chain := NewChain(testIndex(t), &keywordEmbedder{err: errors.New("ollama down")}, &fakeLLM{}, Options{})
	_, err := chain.Invoke(context.Background(), "revenue?", nil)
	assert.ErrorIs(t, err, errs.ErrModelCallFailed)

	chain = NewChain(testIndex(t), &keywordEmbedder{}, &fakeLLM{err: errors.New("timeout")}, Options{})
	_, err = chain.Invoke(context.Background(), "revenue?", nil)
	assert.ErrorIs(t, err, errs.ErrModelCallFailed)
	assert.ErrorContains(t, err, "timeout")
}

func TestPrompt_NoResultsAndOverrides(t *testing.T) {
	p := PromptFromConfig(config.LLMPromptConfig{Rules: "Be brief.", RefStart: "[ctx]", RefEnd: "[/ctx]"})
	assert.Equal(t, "Be brief.\n\n[ctx]\n(no matching insights)\n[/ctx]", p.SystemMessage(nil))
	assert.Equal(t, DefaultPrompt().NoResultText, p.NoResultText)
}
