package handler

import (
	"github.com/gin-gonic/gin"
	"hotel-insights-go/internal/middleware"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/token"
)

// Dependencies 汇总注册路由所需的服务。
type Dependencies struct {
	Analytics   service.AnalyticsService
	Bookings    service.BookingService
	Chat        service.ChatService
	Health      service.HealthService
	Insights    service.InsightService
	Sessions    *token.SessionManager
	Notifier    RefreshNotifier
	CORSOrigins []string
}

// NewRouter 创建路由引擎并注册全部路由。
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New() // 不带默认中间件
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(deps.CORSOrigins))

	analyticsHandler := NewAnalyticsHandler(deps.Analytics)
	bookingHandler := NewBookingHandler(deps.Bookings)
	chatHandler := NewChatHandler(deps.Chat, deps.Sessions)
	healthHandler := NewHealthHandler(deps.Health)
	insightHandler := NewInsightHandler(deps.Insights, deps.Notifier)
	sessionHandler := NewSessionHandler(deps.Sessions, deps.Chat)

	r.GET("/health", healthHandler.Health)
	r.POST("/analytics", analyticsHandler.Analytics)
	r.POST("/generate-data", bookingHandler.GenerateData)
	r.GET("/insights", insightHandler.ListInsights)
	r.POST("/refresh", insightHandler.Refresh)

	// WebSocket 路由的令牌在路径中
	r.GET("/chat/:token", chatHandler.Handle)

	sessioned := r.Group("/")
	sessioned.Use(middleware.SessionMiddleware(deps.Sessions))
	{
		sessioned.POST("/ask", chatHandler.Ask)
		sessioned.POST("/session", sessionHandler.CreateSession)
	}

	// 会话历史只对持有令牌的调用方开放
	conversation := r.Group("/conversation")
	conversation.Use(middleware.SessionMiddleware(deps.Sessions), middleware.RequireSessionToken())
	{
		conversation.GET("", sessionHandler.GetConversation)
		conversation.DELETE("", sessionHandler.ClearConversation)
	}
	return r
}
