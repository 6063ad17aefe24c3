package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/errs"
	"hotel-insights-go/pkg/log"
)

// AnalyticsHandler 处理图表分析请求。
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

// NewAnalyticsHandler 创建一个新的 AnalyticsHandler。
func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Analytics 重新读取全部预订记录并返回 7 个图表的 JSON 字符串。
func (h *AnalyticsHandler) Analytics(c *gin.Context) {
	charts, err := h.analyticsService.Charts(c.Request.Context())
	if err != nil {
		if errors.Is(err, errs.ErrNoBookingData) {
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrNoBookingData.Message})
			return
		}
		log.Errorf("[AnalyticsHandler] 生成图表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, charts)
}
