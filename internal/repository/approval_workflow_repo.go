package repository

import (
	"context"
	"errors"
	"time"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type ApprovalWorkflowRepository interface {
	WithTx(tx *gorm.DB) ApprovalWorkflowRepository
	Create(ctx context.Context, w *models.ApprovalWorkflow) error
	GetByID(ctx context.Context, id string) (*models.ApprovalWorkflow, error)
	GetByItem(ctx context.Context, itemType, itemID string) (*models.ApprovalWorkflow, error)
	Save(ctx context.Context, w *models.ApprovalWorkflow, appended *models.WorkflowApproval) error
}

type GormApprovalWorkflowRepository struct {
	db *gorm.DB
}

func NewGormApprovalWorkflowRepository(db *gorm.DB) (*GormApprovalWorkflowRepository, error) {
	if err := db.AutoMigrate(&models.ApprovalWorkflow{}, &models.WorkflowApproval{}); err != nil {
		return nil, err
	}

	return &GormApprovalWorkflowRepository{db: db}, nil
}

func (r *GormApprovalWorkflowRepository) WithTx(tx *gorm.DB) ApprovalWorkflowRepository {
	return &GormApprovalWorkflowRepository{db: tx}
}

// Create inserts the workflow. A second workflow for the same item yields ErrDuplicate.
func (r *GormApprovalWorkflowRepository) Create(ctx context.Context, w *models.ApprovalWorkflow) error {
	if w.Version == 0 {
		w.Version = 1
	}
	return translateCreate(r.db.WithContext(ctx).Omit("Approvals").Create(w).Error)
}

func (r *GormApprovalWorkflowRepository) GetByID(ctx context.Context, id string) (*models.ApprovalWorkflow, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormApprovalWorkflowRepository) GetByItem(ctx context.Context, itemType, itemID string) (*models.ApprovalWorkflow, error) {
	return r.first(ctx, "item_type = ? AND item_id = ?", itemType, itemID)
}

func (r *GormApprovalWorkflowRepository) first(ctx context.Context, query string, args ...any) (*models.ApprovalWorkflow, error) {
	var w models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("step") }).
		Where(query, args...).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Save writes the mutable state of w if the row still has w.Version, then
// appends the approval entry produced by the same transition, if any.
func (r *GormApprovalWorkflowRepository) Save(ctx context.Context, w *models.ApprovalWorkflow, appended *models.WorkflowApproval) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.ApprovalWorkflow{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]any{
			"current_step":     w.CurrentStep,
			"status":           w.Status,
			"rejected_by":      w.RejectedBy,
			"rejection_reason": w.RejectionReason,
			"completed_at":     w.CompletedAt,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	w.Version++
	w.UpdatedAt = now

	if appended != nil {
		if err := r.db.WithContext(ctx).Create(appended).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConcurrentModification
			}
			return err
		}
	}
	return nil
}
