// Package insight 把聚合统计渲染为可嵌入检索的自然语言句子。
package insight

import (
	"fmt"
	"time"

	"hotel-insights-go/internal/analytics"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/pkg/log"
)

// Summarize 对全部预订记录生成洞察句子，顺序固定：
// 月度收入、月度取消率、国家 Top10、月度平均提前期、酒店 ADR 均值、
// 酒店平均入住晚数、12 个自然月预订量。
func Summarize(bookings []model.Booking) []model.Insight {
	return FromSummary(analytics.Aggregate(bookings))
}

// FromSummary 基于已有的聚合结果生成洞察句子。
func FromSummary(s *analytics.Summary) []model.Insight {
	if s.Skipped > 0 {
		log.Warnf("[Insight] %d 条记录的到达月份无法识别，已从按月统计中排除", s.Skipped)
	}

	top := s.TopCountries(analytics.TopCountryLimit)
	out := make([]model.Insight, 0, 2*len(s.Periods)+len(top)+len(s.Periods)+2*len(s.Hotels)+12)
	add := func(category string, ordinal int, text string) {
		out = append(out, model.Insight{
			ID:       fmt.Sprintf("%s-%d", category, ordinal),
			Category: category,
			Text:     text,
			Type:     model.InsightType,
		})
	}

	for i, p := range s.Periods {
		add(model.CategoryRevenue, i, fmt.Sprintf("Date: %s - Total revenue is %.2f.", p.Label(), p.Revenue))
	}
	for i, p := range s.Periods {
		add(model.CategoryCancellation, i, fmt.Sprintf("On %s, cancellation rate was %.2f%%.", p.Label(), p.CancellationRate()))
	}
	for i, c := range top {
		add(model.CategoryCountry, i, fmt.Sprintf("Country %s had %d bookings.", c.Country, c.Bookings))
	}
	for i, p := range s.Periods {
		add(model.CategoryLeadTime, i, fmt.Sprintf("On %s, average lead time was %.2f days.", p.Label(), p.AvgLeadTime()))
	}
	for i, h := range s.Hotels {
		add(model.CategoryADR, i, fmt.Sprintf("Hotel type %s has ADR mean %.2f.", h.Hotel, h.ADRMean))
	}
	for i, h := range s.Hotels {
		add(model.CategoryStay, i, fmt.Sprintf("Hotel type %s average stay is %.2f nights.", h.Hotel, h.AvgStay))
	}
	for i, n := range s.Monthly {
		add(model.CategoryMonthly, i, fmt.Sprintf("In %s, total bookings was %d.", time.Month(i+1), n))
	}

	return out
}

// Texts 返回洞察句子文本。
func Texts(insights []model.Insight) []string {
	texts := make([]string, len(insights))
	for i, in := range insights {
		texts[i] = in.Text
	}
	return texts
}
