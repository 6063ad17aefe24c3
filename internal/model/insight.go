package model

// InsightType 是所有洞察文档共享的类型标记。
const InsightType = "insight"

// Insight 类别
const (
	CategoryRevenue      = "revenue_by_month"
	CategoryCancellation = "cancellation_rate_by_month"
	CategoryCountry      = "top_countries"
	CategoryLeadTime     = "lead_time_by_month"
	CategoryADR          = "adr_by_hotel"
	CategoryStay         = "stay_by_hotel"
	CategoryMonthly      = "bookings_by_month"
)

// Insight 是由聚合统计渲染出来的一句自然语言事实，作为检索单元。
// 每次刷新整体重新生成，不做原地更新。
type Insight struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Text     string `json:"text"`
	Type     string `json:"type"`
}
