package repository

import (
	"context"
	"errors"

	"leave-ledger/internal/models"

	"gorm.io/gorm"
)

type EmployeeRepository interface {
	WithTx(tx *gorm.DB) EmployeeRepository
	Create(ctx context.Context, emp *models.Employee) error
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Employee, error)
	GetAll(ctx context.Context) ([]models.Employee, error)
	UpdateRole(ctx context.Context, id uint, role string) error
}

type GormEmployeeRepository struct {
	db *gorm.DB
}

func NewGormEmployeeRepository(db *gorm.DB) (*GormEmployeeRepository, error) {
	if err := db.AutoMigrate(&models.Employee{}); err != nil {
		return nil, err
	}

	return &GormEmployeeRepository{db: db}, nil
}

func (r *GormEmployeeRepository) WithTx(tx *gorm.DB) EmployeeRepository {
	return &GormEmployeeRepository{db: tx}
}

func (r *GormEmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	return translateCreate(r.db.WithContext(ctx).Create(emp).Error)
}

// GetByID returns nil, nil when the employee does not exist.
func (r *GormEmployeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var emp models.Employee
	err := r.db.WithContext(ctx).First(&emp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *GormEmployeeRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Employee, error) {
	var emp models.Employee
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *GormEmployeeRepository) GetAll(ctx context.Context) ([]models.Employee, error) {
	var emps []models.Employee
	err := r.db.WithContext(ctx).Order("id").Find(&emps).Error
	return emps, err
}

func (r *GormEmployeeRepository) UpdateRole(ctx context.Context, id uint, role string) error {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
