package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"hotel-insights-go/internal/model"
	"hotel-insights-go/internal/repository"
	"hotel-insights-go/pkg/log"
)

var (
	hotelTypes   = []string{"Resort Hotel", "City Hotel"}
	countryCodes = []string{"PRT", "GBR", "USA", "FRA", "ESP"}
	arrivalYears = []int{2015, 2016, 2017}
)

// RandomBooking 生成一条随机预订。revenue 精确等于 adr × 总晚数。
func RandomBooking(r *rand.Rand) model.Booking {
	adr := math.Round((50+r.Float64()*250)*100) / 100
	week := r.Intn(11)
	weekend := r.Intn(6)
	return model.Booking{
		Hotel:                hotelTypes[r.Intn(len(hotelTypes))],
		IsCanceled:           r.Intn(2),
		LeadTime:             1 + r.Intn(200),
		ArrivalDateYear:      arrivalYears[r.Intn(len(arrivalYears))],
		ArrivalDateMonth:     time.Month(1 + r.Intn(12)).String(),
		ADR:                  adr,
		StaysInWeekNights:    week,
		StaysInWeekendNights: weekend,
		Country:              countryCodes[r.Intn(len(countryCodes))],
		Revenue:              adr * float64(week+weekend),
	}
}

// BookingService 负责写入合成的预订数据。
type BookingService interface {
	Generate(ctx context.Context) (*model.Booking, error)
	GenerateN(ctx context.Context, n int) (int, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBookingService 创建一个新的 BookingService 实例。rnd 为 nil 时使用当前时间作为种子。
func NewBookingService(bookingRepo repository.BookingRepository, rnd *rand.Rand) BookingService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &bookingService{bookingRepo: bookingRepo, rnd: rnd}
}

func (s *bookingService) next() model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RandomBooking(s.rnd)
}

// Generate 插入一条随机预订。不触发刷新。
func (s *bookingService) Generate(ctx context.Context) (*model.Booking, error) {
	b := s.next()
	if err := s.bookingRepo.Create(ctx, &b); err != nil {
		return nil, err
	}
	log.Infof("[BookingService] 已生成预订: %s %s %d, adr=%.2f", b.Hotel, b.ArrivalDateMonth, b.ArrivalDateYear, b.ADR)
	return &b, nil
}

// GenerateN 插入 n 条随机预订，返回成功写入的条数。
func (s *bookingService) GenerateN(ctx context.Context, n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := s.Generate(ctx); err != nil {
			return i, err
		}
	}
	return n, nil
}
