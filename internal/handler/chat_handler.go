package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"hotel-insights-go/internal/middleware"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/token"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源，与 CORS 配置一致
		},
	}
)

// AskRequest 是 /ask 的请求体。
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// ChatHandler 处理问答请求，包括一次性 HTTP 问答与 WebSocket 流式问答。
type ChatHandler struct {
	chatService service.ChatService
	sessions    *token.SessionManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, sessions *token.SessionManager) *ChatHandler {
	return &ChatHandler{chatService: chatService, sessions: sessions}
}

// Ask 回答一个问题。会话 ID 依次取自令牌、X-Session-ID 请求头、请求体，
// 都没有时生成新的 ID 并在响应中返回。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.SessionID)
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result, err := h.chatService.Ask(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		log.Errorf("[ChatHandler] 问答失败, session=%s: %v", sessionID, err)
		respondError(c, err, "Failed to process question: ")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":     result.Answer,
		"session_id": result.SessionID,
	})
}

// Handle 处理一个 WebSocket 连接。路径中的 token 是会话令牌，
// 每个文本帧是一个问题，回答以 {"chunk": "..."} 帧流式返回，最后发送完成通知。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.sessions.Verify(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[ChatHandler] WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	sessionID := claims.SessionID
	log.Infof("[ChatHandler] WebSocket 连接已建立, session=%s", sessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		question := string(message)

		_, err = h.chatService.StreamAsk(c.Request.Context(), sessionID, question, func(chunk string) error {
			return writeJSON(conn, gin.H{"chunk": chunk})
		})
		if err != nil {
			log.Errorf("[ChatHandler] 处理流式响应失败, session=%s: %v", sessionID, err)
			_ = writeJSON(conn, gin.H{"error": err.Error()})
		}
		if err := writeJSON(conn, completion()); err != nil {
			log.Warnf("[ChatHandler] 发送完成通知失败: %v", err)
			return
		}
	}
}

func completion() gin.H {
	now := time.Now()
	return gin.H{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": now.UnixMilli(),
		"date":      now.Format("2006-01-02T15:04:05"),
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
