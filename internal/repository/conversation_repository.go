package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"hotel-insights-go/internal/model"
)

// 对话历史保留时长
const conversationTTL = 7 * 24 * time.Hour

// DefaultHistoryLimit 是每个会话保留的最大消息数。
const DefaultHistoryLimit = 20

// ConversationRepository 定义了按会话保存对话历史的操作接口。
type ConversationRepository interface {
	GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	ClearConversation(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
	limit       int64
}

// NewConversationRepository 创建一个基于 Redis 列表的 ConversationRepository。
func NewConversationRepository(redisClient *redis.Client, limit int) ConversationRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &redisConversationRepository{redisClient: redisClient, limit: int64(limit)}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// GetConversationHistory 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	items, err := r.redisClient.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	messages := make([]model.ChatMessage, 0, len(items))
	for _, item := range items {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// AppendMessages 在一个事务流水线中追加消息、裁剪到上限并续期。
func (r *redisConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation message: %w", err)
		}
		values = append(values, data)
	}

	key := conversationKey(sessionID)
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		// 保留最近 limit 条
		pipe.LTrim(ctx, key, -r.limit, -1)
		pipe.Expire(ctx, key, conversationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append conversation history: %w", err)
	}
	return nil
}

// ClearConversation 删除会话的全部历史。
func (r *redisConversationRepository) ClearConversation(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}

// memoryConversationRepository 在未配置 Redis 时使用，进程重启后历史丢失。
type memoryConversationRepository struct {
	mu       sync.Mutex
	limit    int
	sessions map[string][]model.ChatMessage
}

// NewMemoryConversationRepository 创建一个进程内的 ConversationRepository。
func NewMemoryConversationRepository(limit int) ConversationRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &memoryConversationRepository{limit: limit, sessions: make(map[string][]model.ChatMessage)}
}

func (r *memoryConversationRepository) GetConversationHistory(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage{}, r.sessions[sessionID]...), nil
}

func (r *memoryConversationRepository) AppendMessages(_ context.Context, sessionID string, messages ...model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := append(r.sessions[sessionID], messages...)
	if len(history) > r.limit {
		history = append([]model.ChatMessage(nil), history[len(history)-r.limit:]...)
	}
	r.sessions[sessionID] = history
	return nil
}

func (r *memoryConversationRepository) ClearConversation(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
