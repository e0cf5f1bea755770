package repository

import (
	"context"
	"time"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type NonWorkingDayRepository interface {
	BulkCreate(ctx context.Context, days []models.NonWorkingDay) error
	GetByYearMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error)
	DeleteYear(ctx context.Context, year int) error
	CountInRange(ctx context.Context, from, to time.Time) (int, error)
}

type GormNonWorkingDayRepository struct {
	db *gorm.DB
}

func NewGormNonWorkingDayRepository(db *gorm.DB) (*GormNonWorkingDayRepository, error) {
	if err := db.AutoMigrate(&models.NonWorkingDay{}); err != nil {
		return nil, err
	}

	return &GormNonWorkingDayRepository{db: db}, nil
}

func (r *GormNonWorkingDayRepository) BulkCreate(ctx context.Context, days []models.NonWorkingDay) error {
	if len(days) == 0 {
		return nil
	}
	return translateCreate(r.db.WithContext(ctx).Create(&days).Error)
}

func (r *GormNonWorkingDayRepository) GetByYearMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error) {
	var days []models.NonWorkingDay
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("day").
		Find(&days).Error
	return days, err
}

func (r *GormNonWorkingDayRepository) DeleteYear(ctx context.Context, year int) error {
	return r.db.WithContext(ctx).Where("year = ?", year).Delete(&models.NonWorkingDay{}).Error
}

// CountInRange counts registered non-working days in [from, to], both included.
func (r *GormNonWorkingDayRepository) CountInRange(ctx context.Context, from, to time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.NonWorkingDay{}).
		Where("day BETWEEN ? AND ?", from.Format(models.DayLayout), to.Format(models.DayLayout)).
		Count(&count).Error
	return int(count), err
}
