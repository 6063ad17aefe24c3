package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/pkg/log"
)

// 超过该长度的请求/响应体在日志中截断，图表 JSON 可能很大
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "...(truncated)"
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
// WebSocket 升级请求只记录元信息，不包装 ResponseWriter。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			log.Infow("WebSocket Request Log",
				"latency", time.Since(startTime).String(),
				"clientIP", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			return
		}

		// 读取并重新缓存请求体
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", truncate(string(requestBody)),
			"responseBody", truncate(blw.body.String()),
		)
	}
}
