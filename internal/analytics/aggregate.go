// Package analytics 对预订记录做聚合统计，结果同时用于图表与洞察句子。
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"hotel-insights-go/internal/model"
)

// TopCountryLimit 是国家分布保留的国家数量。
const TopCountryLimit = 10

// Period 是一个到达年月。
type Period struct {
	Year  int
	Month time.Month
}

// Time 返回该月第一天（UTC）。
func (p Period) Time() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Label 返回形如 "Jul 1, 2015" 的日期标签。
func (p Period) Label() string {
	return p.Time().Format("Jan 2, 2006")
}

func (p Period) before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// PeriodStat 是某个到达年月的统计。
type PeriodStat struct {
	Period
	Bookings    int
	Canceled    int
	Revenue     float64
	leadTimeSum int
}

// CancellationRate 返回取消率（百分比）。
func (s PeriodStat) CancellationRate() float64 {
	if s.Bookings == 0 {
		return 0
	}
	return float64(s.Canceled) / float64(s.Bookings) * 100
}

// AvgLeadTime 返回平均提前预订天数。
func (s PeriodStat) AvgLeadTime() float64 {
	if s.Bookings == 0 {
		return 0
	}
	return float64(s.leadTimeSum) / float64(s.Bookings)
}

// CountryCount 是某个国家的预订数。
type CountryCount struct {
	Country  string
	Bookings int
}

// HotelStat 是某个酒店类型的统计。
type HotelStat struct {
	Hotel    string
	Bookings int

	ADRMean   float64
	ADRStd    float64
	ADRMin    float64
	ADRQ1     float64
	ADRMedian float64
	ADRQ3     float64
	ADRMax    float64

	AvgStay          float64
	AvgWeekNights    float64
	AvgWeekendNights float64
}

// Summary 是一次全量聚合的结果。
type Summary struct {
	Total int
	// Skipped 是月份无法识别、被排除在按月统计之外的记录数。
	Skipped   int
	Periods   []PeriodStat
	Countries []CountryCount
	Hotels    []HotelStat
	Monthly   [12]int
}

// TopCountries 返回预订数最多的 n 个国家。
func (s *Summary) TopCountries(n int) []CountryCount {
	if n > len(s.Countries) {
		n = len(s.Countries)
	}
	return s.Countries[:n]
}

type hotelAcc struct {
	adrs    []float64
	week    int
	weekend int
}

// Aggregate 计算全部统计。Periods 按时间升序，Countries 按预订数降序
// （相同时按国家代码升序），Hotels 按名称升序。
func Aggregate(bookings []model.Booking) *Summary {
	s := &Summary{Total: len(bookings)}

	periods := make(map[Period]*PeriodStat)
	countries := make(map[string]int)
	hotels := make(map[string]*hotelAcc)

	for _, b := range bookings {
		// 国家为空（数据集中的 NULL）不计入国家分布
		if country := strings.TrimSpace(b.Country); country != "" {
			countries[country]++
		}

		h, ok := hotels[b.Hotel]
		if !ok {
			h = &hotelAcc{}
			hotels[b.Hotel] = h
		}
		h.adrs = append(h.adrs, b.ADR)
		h.week += b.StaysInWeekNights
		h.weekend += b.StaysInWeekendNights

		month, ok := b.ArrivalMonth()
		if !ok {
			s.Skipped++
			continue
		}
		s.Monthly[month-1]++

		key := Period{Year: b.ArrivalDateYear, Month: month}
		ps, ok := periods[key]
		if !ok {
			ps = &PeriodStat{Period: key}
			periods[key] = ps
		}
		ps.Bookings++
		ps.Revenue += b.TotalRevenue()
		ps.leadTimeSum += b.LeadTime
		if b.Canceled() {
			ps.Canceled++
		}
	}

	s.Periods = make([]PeriodStat, 0, len(periods))
	for _, ps := range periods {
		s.Periods = append(s.Periods, *ps)
	}
	sort.Slice(s.Periods, func(i, j int) bool {
		return s.Periods[i].Period.before(s.Periods[j].Period)
	})

	s.Countries = make([]CountryCount, 0, len(countries))
	for c, n := range countries {
		s.Countries = append(s.Countries, CountryCount{Country: c, Bookings: n})
	}
	sort.Slice(s.Countries, func(i, j int) bool {
		if s.Countries[i].Bookings != s.Countries[j].Bookings {
			return s.Countries[i].Bookings > s.Countries[j].Bookings
		}
		return s.Countries[i].Country < s.Countries[j].Country
	})

	s.Hotels = make([]HotelStat, 0, len(hotels))
	for name, h := range hotels {
		s.Hotels = append(s.Hotels, hotelStat(name, h))
	}
	sort.Slice(s.Hotels, func(i, j int) bool {
		return s.Hotels[i].Hotel < s.Hotels[j].Hotel
	})

	return s
}

func hotelStat(name string, h *hotelAcc) HotelStat {
	n := len(h.adrs)
	sort.Float64s(h.adrs)

	hs := HotelStat{
		Hotel:            name,
		Bookings:         n,
		ADRMean:          stat.Mean(h.adrs, nil),
		ADRMin:           h.adrs[0],
		ADRQ1:            stat.Quantile(0.25, stat.LinInterp, h.adrs, nil),
		ADRMedian:        stat.Quantile(0.5, stat.LinInterp, h.adrs, nil),
		ADRQ3:            stat.Quantile(0.75, stat.LinInterp, h.adrs, nil),
		ADRMax:           h.adrs[n-1],
		AvgStay:          float64(h.week+h.weekend) / float64(n),
		AvgWeekNights:    float64(h.week) / float64(n),
		AvgWeekendNights: float64(h.weekend) / float64(n),
	}
	// 样本标准差在 n<2 时为 NaN，无法编码为 JSON
	if n > 1 {
		hs.ADRStd = stat.StdDev(h.adrs, nil)
	}
	return hs
}

// Round2 保留两位小数。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
