package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hotel-insights-go/internal/model"
)

func bookings() []model.Booking {
	return []model.Booking{
		{Hotel: "City Hotel", IsCanceled: 1, LeadTime: 100, ArrivalDateYear: 2015, ArrivalDateMonth: "July", ADR: 100, StaysInWeekNights: 2, StaysInWeekendNights: 1, Country: "PRT", Revenue: 300},
		{Hotel: "City Hotel", IsCanceled: 0, LeadTime: 50, ArrivalDateYear: 2015, ArrivalDateMonth: "July", ADR: 110.5, StaysInWeekNights: 1, StaysInWeekendNights: 1, Country: "PRT", Revenue: 221},
		{Hotel: "Resort Hotel", IsCanceled: 0, LeadTime: 7, ArrivalDateYear: 2016, ArrivalDateMonth: "March", ADR: 90, StaysInWeekNights: 4, StaysInWeekendNights: 2, Country: "ESP", Revenue: 540},
	}
}

func countByCategory(insights []model.Insight) map[string]int {
	counts := make(map[string]int)
	for _, in := range insights {
		counts[in.Category]++
	}
	return counts
}

func TestSummarize_CountsAndOrder(t *testing.T) {
	insights := Summarize(bookings())

	// 2 个年月 × 3 类按月统计 + 2 个国家 + 2 种酒店 × 2 + 12 个月
	require.Len(t, insights, 2*3+2+2*2+12)

	counts := countByCategory(insights)
	assert.Equal(t, 2, counts[model.CategoryRevenue])
	assert.Equal(t, 2, counts[model.CategoryCancellation])
	assert.Equal(t, 2, counts[model.CategoryCountry])
	assert.Equal(t, 2, counts[model.CategoryLeadTime])
	assert.Equal(t, 2, counts[model.CategoryADR])
	assert.Equal(t, 2, counts[model.CategoryStay])
	assert.Equal(t, 12, counts[model.CategoryMonthly])

	assert.Equal(t, model.CategoryRevenue, insights[0].Category)
	assert.Equal(t, model.CategoryMonthly, insights[len(insights)-1].Category)
	for _, in := range insights {
		assert.Equal(t, model.InsightType, in.Type)
		assert.NotEmpty(t, in.ID)
	}
}

func TestSummarize_Sentences(t *testing.T) {
	texts := Texts(Summarize(bookings()))

	assert.Contains(t, texts, "Date: Jul 1, 2015 - Total revenue is 521.00.")
	assert.Contains(t, texts, "Date: Mar 1, 2016 - Total revenue is 540.00.")
	assert.Contains(t, texts, "On Jul 1, 2015, cancellation rate was 50.00%.")
	assert.Contains(t, texts, "Country PRT had 2 bookings.")
	assert.Contains(t, texts, "On Jul 1, 2015, average lead time was 75.00 days.")
	assert.Contains(t, texts, "Hotel type City Hotel has ADR mean 105.25.")
	assert.Contains(t, texts, "Hotel type Resort Hotel average stay is 6.00 nights.")
	assert.Contains(t, texts, "In July, total bookings was 2.")
	assert.Contains(t, texts, "In January, total bookings was 0.")

	// 按时间升序
	assert.Equal(t, "Date: Jul 1, 2015 - Total revenue is 521.00.", texts[0])
}

func TestSummarize_EmptyStillHasMonthlySentences(t *testing.T) {
	insights := Summarize(nil)
	require.Len(t, insights, 12)
	assert.Equal(t, "In January, total bookings was 0.", insights[0].Text)
}

func TestSummarize_TopTenCountries(t *testing.T) {
	var rows []model.Booking
	for i, code := range []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF", "GGG", "HHH", "III", "JJJ", "KKK", "LLL"} {
		for j := 0; j <= i; j++ {
			rows = append(rows, model.Booking{Hotel: "City Hotel", ArrivalDateYear: 2017, ArrivalDateMonth: "May", ADR: 50, Country: code})
		}
	}

	counts := countByCategory(Summarize(rows))
	assert.Equal(t, 10, counts[model.CategoryCountry])
}
