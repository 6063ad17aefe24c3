package service

import (
	"context"
	"fmt"

	"hotel-insights-go/internal/analytics"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/pkg/errs"
)

// AnalyticsService 每次调用都重新读取全部预订并生成图表。
type AnalyticsService interface {
	Charts(ctx context.Context) (map[string]string, error)
}

type analyticsService struct {
	bookingRepo repository.BookingRepository
}

// NewAnalyticsService 创建一个新的 AnalyticsService 实例。
func NewAnalyticsService(bookingRepo repository.BookingRepository) AnalyticsService {
	return &analyticsService{bookingRepo: bookingRepo}
}

func (s *analyticsService) Charts(ctx context.Context) (map[string]string, error) {
	bookings, err := s.bookingRepo.FindAll(ctx)
	if err != nil {
		return nil, errs.ErrDataSourceUnavailable.Wrap(err)
	}
	if len(bookings) == 0 {
		return nil, errs.ErrNoBookingData
	}
	charts, err := analytics.BuildCharts(analytics.Aggregate(bookings))
	if err != nil {
		return nil, fmt.Errorf("build charts: %w", err)
	}
	return charts, nil
}
