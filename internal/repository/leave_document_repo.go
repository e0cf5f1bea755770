package repository

import (
	"context"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type LeaveDocumentRepository interface {
	Create(ctx context.Context, doc *models.LeaveDocument) error
	ListByRequest(ctx context.Context, requestID string) ([]models.LeaveDocument, error)
	ExistsKind(ctx context.Context, requestID, kind string) (bool, error)
}

type GormLeaveDocumentRepository struct {
	db *gorm.DB
}

func NewGormLeaveDocumentRepository(db *gorm.DB) (*GormLeaveDocumentRepository, error) {
	if err := db.AutoMigrate(&models.LeaveDocument{}); err != nil {
		return nil, err
	}

	return &GormLeaveDocumentRepository{db: db}, nil
}

func (r *GormLeaveDocumentRepository) Create(ctx context.Context, doc *models.LeaveDocument) error {
	return translateCreate(r.db.WithContext(ctx).Create(doc).Error)
}

func (r *GormLeaveDocumentRepository) ListByRequest(ctx context.Context, requestID string) ([]models.LeaveDocument, error) {
	var docs []models.LeaveDocument
	err := r.db.WithContext(ctx).
		Where("leave_request_id = ?", requestID).
		Order("created_at").
		Find(&docs).Error
	return docs, err
}

func (r *GormLeaveDocumentRepository) ExistsKind(ctx context.Context, requestID, kind string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeaveDocument{}).
		Where("leave_request_id = ? AND kind = ?", requestID, kind).
		Count(&count).Error
	return count > 0, err
}
