package repository

import (
	"context"
	"errors"
	"time"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type LeaveBalanceRepository interface {
	WithTx(tx *gorm.DB) LeaveBalanceRepository
	GetByEmployeeYear(ctx context.Context, employeeID uint, year int) (*models.LeaveBalance, error)
	Create(ctx context.Context, b *models.LeaveBalance) error
	UpdateUsage(ctx context.Context, b *models.LeaveBalance) error
	UpdateTotals(ctx context.Context, b *models.LeaveBalance) error
}

type GormLeaveBalanceRepository struct {
	db *gorm.DB
}

func NewGormLeaveBalanceRepository(db *gorm.DB) (*GormLeaveBalanceRepository, error) {
	if err := db.AutoMigrate(&models.LeaveBalance{}); err != nil {
		return nil, err
	}

	return &GormLeaveBalanceRepository{db: db}, nil
}

func (r *GormLeaveBalanceRepository) WithTx(tx *gorm.DB) LeaveBalanceRepository {
	return &GormLeaveBalanceRepository{db: tx}
}

// GetByEmployeeYear returns nil, nil when no row exists yet.
func (r *GormLeaveBalanceRepository) GetByEmployeeYear(ctx context.Context, employeeID uint, year int) (*models.LeaveBalance, error) {
	var b models.LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND year = ?", employeeID, year).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new row. A concurrent insert of the same (employee, year)
// yields ErrDuplicate.
func (r *GormLeaveBalanceRepository) Create(ctx context.Context, b *models.LeaveBalance) error {
	if b.Version == 0 {
		b.Version = 1
	}
	return translateCreate(r.db.WithContext(ctx).Create(b).Error)
}

// UpdateUsage writes every used counter if the row still has b.Version.
func (r *GormLeaveBalanceRepository) UpdateUsage(ctx context.Context, b *models.LeaveBalance) error {
	return r.compareAndSwap(ctx, b, map[string]any{
		"sick_paid_used":      b.SickPaidUsed,
		"sick_unpaid_used":    b.SickUnpaidUsed,
		"casual_paid_used":    b.CasualPaidUsed,
		"casual_unpaid_used":  b.CasualUnpaidUsed,
		"bereavement_used":    b.BereavementUsed,
		"public_holiday_used": b.PublicHolidayUsed,
		"unpaid_leave_used":   b.UnpaidLeaveUsed,
	})
}

// UpdateTotals writes the entitlements if the row still has b.Version.
func (r *GormLeaveBalanceRepository) UpdateTotals(ctx context.Context, b *models.LeaveBalance) error {
	return r.compareAndSwap(ctx, b, map[string]any{
		"sick_paid_total":      b.SickPaidTotal,
		"sick_unpaid_total":    b.SickUnpaidTotal,
		"casual_paid_total":    b.CasualPaidTotal,
		"casual_unpaid_total":  b.CasualUnpaidTotal,
		"bereavement_total":    b.BereavementTotal,
		"public_holiday_total": b.PublicHolidayTotal,
		"unpaid_leave_total":   b.UnpaidLeaveTotal,
	})
}

func (r *GormLeaveBalanceRepository) compareAndSwap(ctx context.Context, b *models.LeaveBalance, fields map[string]any) error {
	now := time.Now()
	fields["version"] = gorm.Expr("version + 1")
	fields["updated_at"] = now

	result := r.db.WithContext(ctx).Model(&models.LeaveBalance{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}

	b.Version++
	b.UpdatedAt = now
	return nil
}
