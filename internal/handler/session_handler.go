package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"hotel-insights-go/internal/middleware"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/token"
)

// SessionHandler 负责签发会话令牌以及读写会话历史。
type SessionHandler struct {
	sessions    *token.SessionManager
	chatService service.ChatService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(sessions *token.SessionManager, chatService service.ChatService) *SessionHandler {
	return &SessionHandler{sessions: sessions, chatService: chatService}
}

// CreateSession 为新会话签发令牌。请求已携带会话 ID 时沿用该 ID。
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	tokenString, expiresAt, err := h.sessions.Issue(sessionID)
	if err != nil {
		log.Errorf("[SessionHandler] 签发会话令牌失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"token":      tokenString,
		"expires_at": expiresAt,
	})
}

// GetConversation 返回当前会话的历史消息。
func (h *SessionHandler) GetConversation(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	history, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		log.Errorf("[SessionHandler] 读取会话历史失败, session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": history})
}

// ClearConversation 清空当前会话的历史消息。
func (h *SessionHandler) ClearConversation(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.chatService.Clear(c.Request.Context(), sessionID); err != nil {
		log.Errorf("[SessionHandler] 清空会话历史失败, session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear conversation history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation cleared."})
}

func requireSession(c *gin.Context) (string, bool) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return "", false
	}
	return sessionID, true
}
