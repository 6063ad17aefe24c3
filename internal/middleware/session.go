// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/token"
)

// 上下文键
const (
	ContextSessionID = "sessionID"
	ContextClaims    = "claims"
)

// SessionHeader 是直接携带会话 ID 的请求头。
const SessionHeader = "X-Session-ID"

// SessionMiddleware 从请求中解析会话 ID 并存入 Gin 上下文。
// 优先使用 Authorization: Bearer <token>，其次是 X-Session-ID 请求头。
// 两者都没有时不做处理，由具体的处理函数决定如何继续。
func SessionMiddleware(sessions *token.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
				return
			}
			claims, err := sessions.Verify(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				c.AbortWithStatusJSON(errs.ErrInvalidSession.HTTPStatus, gin.H{"error": errs.ErrInvalidSession.Message})
				return
			}
			c.Set(ContextClaims, claims)
			c.Set(ContextSessionID, claims.SessionID)
			c.Next()
			return
		}

		if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
			c.Set(ContextSessionID, id)
		}
		c.Next()
	}
}

// SessionID 返回中间件解析出的会话 ID，没有时返回空串。
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// RequireSessionToken 要求请求携带有效的会话令牌，必须在 SessionMiddleware 之后使用。
// 读取或清空会话历史不接受裸的 X-Session-ID。
func RequireSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextClaims); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session token required (Authorization: Bearer <token>)"})
			return
		}
		c.Next()
	}
}
