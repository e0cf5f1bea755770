package service

import (
	"context"
	"errors"
	"strings"

	"leave-ledger/internal/models"
	"leave-ledger/internal/repository"

	"github.com/sirupsen/logrus"
)

// PolicyRegistry keeps authorization policies in step with the directory.
type PolicyRegistry interface {
	AddEmployee(emp *models.Employee) error
	Sync(employees []models.Employee) error
}

type CreateEmployeeInput struct {
	FirstName string
	LastName  string
	ChatID    *int64
	Role      string
	ManagerID *uint
}

type EmployeeService struct {
	repo     repository.EmployeeRepository
	policies PolicyRegistry
	logger   *logrus.Logger
}

func NewEmployeeService(repo repository.EmployeeRepository, policies PolicyRegistry, logger *logrus.Logger) *EmployeeService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EmployeeService{repo: repo, policies: policies, logger: logger}
}

func (s *EmployeeService) Create(ctx context.Context, in CreateEmployeeInput) (*models.Employee, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalidArgument("first name is required")
	}
	if in.Role == "" {
		in.Role = models.RoleEmployee
	}
	if !models.IsValidRole(in.Role) {
		return nil, invalidArgument("unknown role " + in.Role)
	}
	if in.ManagerID != nil {
		if _, err := s.Get(ctx, *in.ManagerID); err != nil {
			return nil, err
		}
	}

	emp := &models.Employee{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		ChatID:    in.ChatID,
		Role:      in.Role,
		ManagerID: in.ManagerID,
	}
	if err := s.repo.Create(ctx, emp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmployeeExists
		}
		s.logger.WithError(err).Error("failed to create employee")
		return nil, err
	}

	if err := s.policies.AddEmployee(emp); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"employee_id": emp.ID, "role": emp.Role}).Info("employee created")
	return emp, nil
}

func (s *EmployeeService) Get(ctx context.Context, id uint) (*models.Employee, error) {
	emp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *EmployeeService) GetByChatID(ctx context.Context, chatID int64) (*models.Employee, error) {
	emp, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *EmployeeService) List(ctx context.Context) ([]models.Employee, error) {
	return s.repo.GetAll(ctx)
}

// UpdateRole changes the role of targetID. Only HR may do this.
func (s *EmployeeService) UpdateRole(ctx context.Context, actorID, targetID uint, role string) (*models.Employee, error) {
	if !models.IsValidRole(role) {
		return nil, invalidArgument("unknown role " + role)
	}
	actor, err := s.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsHR() {
		return nil, ErrNotAuthorized
	}

	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	target.Role = role

	if err := s.policies.AddEmployee(target); err != nil {
		return nil, err
	}
	return target, nil
}

// InitializeAdmin makes the configured chat an HR employee.
func (s *EmployeeService) InitializeAdmin(ctx context.Context, chatID int64) error {
	if chatID == 0 {
		return nil
	}

	existing, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsHR() {
			return nil
		}
		if err := s.repo.UpdateRole(ctx, existing.ID, models.RoleHR); err != nil {
			return err
		}
		existing.Role = models.RoleHR
		return s.policies.AddEmployee(existing)
	}

	_, err = s.Create(ctx, CreateEmployeeInput{
		FirstName: "Administrator",
		ChatID:    &chatID,
		Role:      models.RoleHR,
	})
	return err
}

// SyncPolicies loads the whole directory into the authorizer.
func (s *EmployeeService) SyncPolicies(ctx context.Context) error {
	emps, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	return s.policies.Sync(emps)
}

// ChatIDFor resolves the chat linked to an employee for notifications.
func (s *EmployeeService) ChatIDFor(ctx context.Context, employeeID uint) (int64, bool, error) {
	emp, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return 0, false, err
	}
	if emp == nil || emp.ChatID == nil {
		return 0, false, nil
	}
	return *emp.ChatID, true, nil
}
