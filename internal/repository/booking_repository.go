// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"gorm.io/gorm"
	"hotel-insights-go/internal/model"
	"hotel-insights-go/pkg/database"
)

// BookingRepository 接口定义了预订数据的持久化操作。
type BookingRepository interface {
	FindAll(ctx context.Context) ([]model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	AutoMigrate() error
}

// bookingRepository 是 BookingRepository 接口的 GORM 实现。
type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建一个新的 BookingRepository 实例。
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// FindAll 从数据库中检索所有预订记录。
func (r *bookingRepository) FindAll(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).Find(&bookings).Error
	return bookings, err
}

// Create 在数据库中插入一条预订记录。
func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// Count 返回预订记录总数。
func (r *bookingRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Booking{}).Count(&total).Error
	return total, err
}

// Ping 检查数据库连通性。
func (r *bookingRepository) Ping(ctx context.Context) error {
	return database.Ping(ctx, r.db)
}

// AutoMigrate 创建 hotel_bookings 表（已存在时补齐缺失的列）。
func (r *bookingRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&model.Booking{})
}
