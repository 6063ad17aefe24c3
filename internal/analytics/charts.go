package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// 图表键，与前端约定一致。
const (
	ChartRevenueTrend     = "revenue_trend"
	ChartCancellationRate = "cancellation_rate"
	ChartGeographicalDist = "geographical_dist"
	ChartLeadTimeDist     = "lead_time_dist"
	ChartADRDistribution  = "adr_distribution"
	ChartStayDuration     = "stay_duration"
	ChartMonthlyTrends    = "monthly_trends"
)

// ChartKeys 列出 /analytics 返回的全部图表。
var ChartKeys = []string{
	ChartRevenueTrend,
	ChartCancellationRate,
	ChartGeographicalDist,
	ChartLeadTimeDist,
	ChartADRDistribution,
	ChartStayDuration,
	ChartMonthlyTrends,
}

// chart 是 go-echarts 各图表类型的公共部分。
type chart interface {
	Validate()
	JSON() map[string]interface{}
}

// BuildCharts 把聚合结果渲染为 7 个 ECharts option 的 JSON 字符串。
func BuildCharts(s *Summary) (map[string]string, error) {
	built := map[string]chart{
		ChartRevenueTrend:     revenueTrend(s),
		ChartCancellationRate: cancellationRate(s),
		ChartGeographicalDist: geographicalDist(s),
		ChartLeadTimeDist:     leadTimeDist(s),
		ChartADRDistribution:  adrDistribution(s),
		ChartStayDuration:     stayDuration(s),
		ChartMonthlyTrends:    monthlyTrends(s),
	}

	out := make(map[string]string, len(built))
	for key, c := range built {
		c.Validate()
		data, err := json.Marshal(c.JSON())
		if err != nil {
			return nil, fmt.Errorf("encode chart %s: %w", key, err)
		}
		out[key] = string(data)
	}
	return out, nil
}

func periodLabels(s *Summary) []string {
	labels := make([]string, len(s.Periods))
	for i, p := range s.Periods {
		labels[i] = p.Time().Format("2006-01-02")
	}
	return labels
}

func lineOverTime(title, yName string, s *Summary, value func(PeriodStat) float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Type: "value"}),
	)

	data := make([]opts.LineData, len(s.Periods))
	for i, p := range s.Periods {
		data[i] = opts.LineData{Value: Round2(value(p))}
	}
	line.SetXAxis(periodLabels(s)).
		AddSeries(yName, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line
}

func revenueTrend(s *Summary) *charts.Line {
	return lineOverTime("Revenue Trends Over Time", "Total Revenue (€)", s, func(p PeriodStat) float64 {
		return p.Revenue
	})
}

func cancellationRate(s *Summary) *charts.Line {
	return lineOverTime("Cancellation Rate Over Time", "Cancellation Rate (%)", s, PeriodStat.CancellationRate)
}

func leadTimeDist(s *Summary) *charts.Line {
	return lineOverTime("Average Booking Lead Time Over Time", "Average Lead Time (Days)", s, PeriodStat.AvgLeadTime)
}

func geographicalDist(s *Summary) *charts.Bar {
	top := s.TopCountries(TopCountryLimit)
	codes := make([]string, len(top))
	data := make([]opts.BarData, len(top))
	for i, c := range top {
		codes[i] = c.Country
		data[i] = opts.BarData{Value: c.Bookings}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Top 10 Countries by Booking Count"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Number of Bookings", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Country Code", Type: "category"}),
	)
	bar.SetXAxis(codes).AddSeries("bookings", data).XYReversal()
	return bar
}

func adrDistribution(s *Summary) *charts.BoxPlot {
	hotels := make([]string, len(s.Hotels))
	data := make([]opts.BoxPlotData, len(s.Hotels))
	for i, h := range s.Hotels {
		hotels[i] = h.Hotel
		data[i] = opts.BoxPlotData{
			Name:  h.Hotel,
			Value: []float64{Round2(h.ADRMin), Round2(h.ADRQ1), Round2(h.ADRMedian), Round2(h.ADRQ3), Round2(h.ADRMax)},
		}
	}

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "ADR Distribution by Hotel Type"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hotel Type", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Average Daily Rate (€)", Type: "value"}),
	)
	box.SetXAxis(hotels).AddSeries("adr", data)
	return box
}

func stayDuration(s *Summary) *charts.Bar {
	hotels := make([]string, len(s.Hotels))
	week := make([]opts.BarData, len(s.Hotels))
	weekend := make([]opts.BarData, len(s.Hotels))
	for i, h := range s.Hotels {
		hotels[i] = h.Hotel
		week[i] = opts.BarData{Value: Round2(h.AvgWeekNights)}
		weekend[i] = opts.BarData{Value: Round2(h.AvgWeekendNights)}
	}

	stacked := charts.WithBarChartOpts(opts.BarChart{Stack: "nights"})
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Average Stay Duration by Hotel Type"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hotel Type", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Average Nights", Type: "value"}),
	)
	bar.SetXAxis(hotels).
		AddSeries("stays_in_week_nights", week, stacked).
		AddSeries("stays_in_weekend_nights", weekend, stacked)
	return bar
}

func monthlyTrends(s *Summary) *charts.Bar {
	months := make([]string, 12)
	data := make([]opts.BarData, 12)
	for i := range months {
		months[i] = time.Month(i + 1).String()
		data[i] = opts.BarData{Value: s.Monthly[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Monthly Booking Trends"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Number of Bookings", Type: "value"}),
	)
	bar.SetXAxis(months).AddSeries("bookings", data)
	return bar
}
