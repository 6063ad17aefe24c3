// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/pkg/errs"
)

// respondError 按错误类型返回状态码，响应体统一为 {"error": "..."}。
// 500 类错误带上 prefix 以说明失败的操作。
func respondError(c *gin.Context, err error, prefix string) {
	status := errs.StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = prefix + msg
	}
	c.JSON(status, gin.H{"error": msg})
}
