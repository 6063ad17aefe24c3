package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/internal/service"
)

// HealthHandler 处理健康检查。
type HealthHandler struct {
	healthService service.HealthService
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(healthService service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// Health 总是返回 200，依赖状态在响应体中体现。
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthService.Check(c.Request.Context()))
}
