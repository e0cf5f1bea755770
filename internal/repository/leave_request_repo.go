package repository

import (
	"context"
	"errors"
	"time"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type LeaveRequestRepository interface {
	WithTx(tx *gorm.DB) LeaveRequestRepository
	Create(ctx context.Context, req *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	HasOverlappingPeriod(ctx context.Context, employeeID uint, start, end time.Time) (bool, error)
	UpdateDecision(ctx context.Context, req *models.LeaveRequest) error
	MarkProcessed(ctx context.Context, id string, adminID uint, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]models.LeaveRequest, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]models.LeaveRequest, error)
}

type GormLeaveRequestRepository struct {
	db *gorm.DB
}

func NewGormLeaveRequestRepository(db *gorm.DB) (*GormLeaveRequestRepository, error) {
	if err := db.AutoMigrate(&models.LeaveRequest{}); err != nil {
		return nil, err
	}

	return &GormLeaveRequestRepository{db: db}, nil
}

func (r *GormLeaveRequestRepository) WithTx(tx *gorm.DB) LeaveRequestRepository {
	return &GormLeaveRequestRepository{db: tx}
}

func (r *GormLeaveRequestRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	return translateCreate(r.db.WithContext(ctx).Create(req).Error)
}

// GetByID returns nil, nil when the request does not exist.
func (r *GormLeaveRequestRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// HasOverlappingPeriod reports whether a pending or approved request of the
// employee intersects [start, end].
func (r *GormLeaveRequestRepository) HasOverlappingPeriod(ctx context.Context, employeeID uint, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status IN ?", []string{models.StatusPending, models.StatusApproved}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Count(&count).Error
	return count > 0, err
}

// UpdateDecision persists the outcome of a pending request. A request that is
// no longer pending yields ErrConcurrentModification.
func (r *GormLeaveRequestRepository) UpdateDecision(ctx context.Context, req *models.LeaveRequest) error {
	result := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Where("id = ? AND status = ?", req.ID, models.StatusPending).
		Updates(map[string]any{
			"status":               req.Status,
			"approver_id":          req.ApproverID,
			"decided_at":           req.DecidedAt,
			"rejection_reason":     req.RejectionReason,
			"reserved_paid_days":   req.ReservedPaidDays,
			"reserved_unpaid_days": req.ReservedUnpaidDays,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// MarkProcessed flips both administrative flags on a decided request. It returns
// false when the request was already processed or is still pending.
func (r *GormLeaveRequestRepository) MarkProcessed(ctx context.Context, id string, adminID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Where("id = ? AND admin_processed = ?", id, false).
		Where("status IN ?", []string{models.StatusApproved, models.StatusRejected}).
		Updates(map[string]any{
			"admin_processed":    true,
			"admin_processed_by": adminID,
			"admin_processed_at": at,
			"notification_sent":  true,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormLeaveRequestRepository) ListPending(ctx context.Context) ([]models.LeaveRequest, error) {
	var reqs []models.LeaveRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at").
		Find(&reqs).Error
	return reqs, err
}

func (r *GormLeaveRequestRepository) ListByEmployee(ctx context.Context, employeeID uint) ([]models.LeaveRequest, error) {
	var reqs []models.LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&reqs).Error
	return reqs, err
}
