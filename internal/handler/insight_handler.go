package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/errs"
)

// RefreshNotifier 接收刷新信号，pipeline.Refresher 实现了它。
type RefreshNotifier interface {
	Notify(reason string) bool
}

// InsightHandler 暴露当前洞察快照并接受手动刷新请求。
type InsightHandler struct {
	insightService service.InsightService
	notifier       RefreshNotifier
}

// NewInsightHandler 创建一个新的 InsightHandler。
func NewInsightHandler(insightService service.InsightService, notifier RefreshNotifier) *InsightHandler {
	return &InsightHandler{insightService: insightService, notifier: notifier}
}

// ListInsights 返回当前快照中的全部洞察句子。
func (h *InsightHandler) ListInsights(c *gin.Context) {
	snap := h.insightService.Current()
	if snap == nil {
		c.JSON(errs.ErrServiceNotReady.HTTPStatus, gin.H{"error": errs.ErrServiceNotReady.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version,
		"built_at": snap.BuiltAt,
		"count":    len(snap.Insights),
		"insights": snap.Insights,
	})
}

// Refresh 把手动刷新请求放入后台队列。队列已满时说明已有待执行的重建。
func (h *InsightHandler) Refresh(c *gin.Context) {
	if h.notifier.Notify("manual") {
		c.JSON(http.StatusAccepted, gin.H{"message": "Refresh scheduled."})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Refresh already pending."})
}
