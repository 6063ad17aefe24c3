package service

import (
	"context"
	"strings"
	"time"

	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/internal/vectorindex"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/llm"
	"hotel-insights-go/pkg/log"
)

// AskResult 是一次问答的结果。
type AskResult struct {
	Answer    string
	SessionID string
	Sources   []vectorindex.Hit
}

// ChatService 定义了问答操作的接口，对话历史按会话隔离。
type ChatService interface {
	Ask(ctx context.Context, sessionID, question string) (*AskResult, error)
	StreamAsk(ctx context.Context, sessionID, question string, onChunk llm.ChunkHandler) (*AskResult, error)
	History(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

type chatService struct {
	insightService   InsightService
	conversationRepo repository.ConversationRepository
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(insightService InsightService, conversationRepo repository.ConversationRepository) ChatService {
	return &chatService{
		insightService:   insightService,
		conversationRepo: conversationRepo,
	}
}

func (s *chatService) prepare(ctx context.Context, sessionID, question string) (*Snapshot, string, []model.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, "", nil, errs.ErrQuestionEmpty
	}
	snap := s.insightService.Current()
	if snap == nil {
		return nil, "", nil, errs.ErrServiceNotReady
	}
	history, err := s.conversationRepo.GetConversationHistory(ctx, sessionID)
	if err != nil {
		log.Errorf("[ChatService] 加载会话 %s 历史失败: %v", sessionID, err)
		history = []model.ChatMessage{}
	}
	return snap, question, history, nil
}

// Ask 使用当前快照回答问题，并记录本轮对话。
func (s *chatService) Ask(ctx context.Context, sessionID, question string) (*AskResult, error) {
	snap, question, history, err := s.prepare(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}
	res, err := snap.Chain.Invoke(ctx, question, history)
	if err != nil {
		return nil, err
	}
	s.record(sessionID, question, res.Answer)
	return &AskResult{Answer: res.Answer, SessionID: sessionID, Sources: res.Sources}, nil
}

// StreamAsk 与 Ask 相同，但答案通过 onChunk 分块下发。
func (s *chatService) StreamAsk(ctx context.Context, sessionID, question string, onChunk llm.ChunkHandler) (*AskResult, error) {
	snap, question, history, err := s.prepare(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}
	res, err := snap.Chain.Stream(ctx, question, history, onChunk)
	if err != nil {
		return nil, err
	}
	if res.Answer != "" {
		s.record(sessionID, question, res.Answer)
	}
	return &AskResult{Answer: res.Answer, SessionID: sessionID, Sources: res.Sources}, nil
}

// record 使用后台上下文保存，即使原始请求已被取消，已生成的答案也要落库。
func (s *chatService) record(sessionID, question, answer string) {
	now := time.Now()
	err := s.conversationRepo.AppendMessages(context.Background(), sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: question, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer, Timestamp: now},
	)
	if err != nil {
		// 只记录错误，回答已经成功
		log.Errorf("[ChatService] 保存会话 %s 历史失败: %v", sessionID, err)
	}
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return s.conversationRepo.GetConversationHistory(ctx, sessionID)
}

func (s *chatService) Clear(ctx context.Context, sessionID string) error {
	return s.conversationRepo.ClearConversation(ctx, sessionID)
}
