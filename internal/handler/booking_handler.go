package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/log"
)

// BookingHandler 处理测试数据生成请求。
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler 创建一个新的 BookingHandler。
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// GenerateData 插入一条随机预订记录。不会触发洞察刷新。
func (h *BookingHandler) GenerateData(c *gin.Context) {
	booking, err := h.bookingService.Generate(c.Request.Context())
	if err != nil {
		log.Errorf("[BookingHandler] 生成数据失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate data: " + err.Error()})
		return
	}
	log.Infof("[BookingHandler] 已生成预订记录, hotel=%s, country=%s", booking.Hotel, booking.Country)
	c.JSON(http.StatusOK, gin.H{"message": "New data record generated successfully."})
}
