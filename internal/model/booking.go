// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"strings"
	"time"
)

// Booking 对应于数据库中的 hotel_bookings 表。
// 该表由外部导入维护，没有主键与唯一约束。
type Booking struct {
	Hotel                string  `gorm:"column:hotel;type:varchar(50)" json:"hotel"`
	IsCanceled           int     `gorm:"column:is_canceled" json:"is_canceled"`
	LeadTime             int     `gorm:"column:lead_time" json:"lead_time"`
	ArrivalDateYear      int     `gorm:"column:arrival_date_year" json:"arrival_date_year"`
	ArrivalDateMonth     string  `gorm:"column:arrival_date_month;type:varchar(20)" json:"arrival_date_month"`
	ADR                  float64 `gorm:"column:adr" json:"adr"`
	StaysInWeekNights    int     `gorm:"column:stays_in_week_nights" json:"stays_in_week_nights"`
	StaysInWeekendNights int     `gorm:"column:stays_in_weekend_nights" json:"stays_in_weekend_nights"`
	Country              string  `gorm:"column:country;type:varchar(10)" json:"country"`
	Revenue              float64 `gorm:"column:revenue" json:"revenue"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Booking) TableName() string {
	return "hotel_bookings"
}

// TotalNights 返回工作日与周末入住晚数之和。
func (b Booking) TotalNights() int {
	return b.StaysInWeekNights + b.StaysInWeekendNights
}

// TotalRevenue 返回记录中的收入；旧数据没有 revenue 列时按 adr × 总晚数推导。
func (b Booking) TotalRevenue() float64 {
	if b.Revenue != 0 {
		return b.Revenue
	}
	return b.ADR * float64(b.TotalNights())
}

// Canceled 报告该预订是否已取消。
func (b Booking) Canceled() bool {
	return b.IsCanceled != 0
}

// ArrivalMonth 将英文月份全称解析为 time.Month，无法识别时返回 false。
func (b Booking) ArrivalMonth() (time.Month, bool) {
	return ParseMonth(b.ArrivalDateMonth)
}

// ParseMonth 将英文月份全称解析为 time.Month（time.Parse 对月份名大小写不敏感）。
func ParseMonth(name string) (time.Month, bool) {
	t, err := time.Parse("January", strings.TrimSpace(name))
	if err != nil {
		return 0, false
	}
	return t.Month(), true
}
