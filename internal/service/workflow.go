package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leave-ledger/internal/models"
	"leave-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Authorizer decides who may act on whose leave.
type Authorizer interface {
	CanApprove(approverID, employeeID uint) (bool, error)
	CanProcess(adminID uint) (bool, error)
}

type CreateWorkflowInput struct {
	ItemType          string
	ItemID            string
	RequesterID       uint
	SubjectEmployeeID uint
	// Approvers fixes who signs each step. When empty, Steps approvers are
	// accepted from anyone the authorizer allows.
	Approvers []uint
	Steps     int
}

func (in CreateWorkflowInput) validate() error {
	if strings.TrimSpace(in.ItemType) == "" || strings.TrimSpace(in.ItemID) == "" {
		return invalidArgument("item type and item id are required")
	}
	if len(in.Approvers) == 0 && in.Steps < 1 {
		return invalidArgument("approvers or a positive step count are required")
	}
	if len(in.Approvers) > 0 && in.Steps != 0 && in.Steps != len(in.Approvers) {
		return invalidArgument("step count does not match approver list")
	}
	seen := make(map[uint]bool, len(in.Approvers))
	for _, id := range in.Approvers {
		if id == in.SubjectEmployeeID {
			return invalidArgument("subject cannot approve their own item")
		}
		if seen[id] {
			return invalidArgument("approver listed twice")
		}
		seen[id] = true
	}
	return nil
}

type WorkflowService struct {
	db         *gorm.DB
	repo       repository.ApprovalWorkflowRepository
	authz      Authorizer
	maxRetries int
	now        func() time.Time
	logger     *logrus.Logger
}

func NewWorkflowService(
	db *gorm.DB,
	repo repository.ApprovalWorkflowRepository,
	authz Authorizer,
	maxRetries int,
	logger *logrus.Logger,
) *WorkflowService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WorkflowService{
		db:         db,
		repo:       repo,
		authz:      authz,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

func (s *WorkflowService) Create(ctx context.Context, in CreateWorkflowInput) (*models.ApprovalWorkflow, error) {
	return s.CreateTx(ctx, s.db, in)
}

func (s *WorkflowService) CreateTx(ctx context.Context, tx *gorm.DB, in CreateWorkflowInput) (*models.ApprovalWorkflow, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	steps := in.Steps
	if len(in.Approvers) > 0 {
		steps = len(in.Approvers)
	}
	w := &models.ApprovalWorkflow{
		ID:                uuid.NewString(),
		ItemType:          in.ItemType,
		ItemID:            in.ItemID,
		RequesterID:       in.RequesterID,
		SubjectEmployeeID: in.SubjectEmployeeID,
		Approvers:         models.ApproverList(in.Approvers),
		TotalSteps:        steps,
		CurrentStep:       1,
		Status:            models.StatusPending,
		Version:           1,
	}

	if err := s.repo.WithTx(tx).Create(ctx, w); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrWorkflowExists
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"workflow_id": w.ID,
		"item_type":   w.ItemType,
		"item_id":     w.ItemID,
		"steps":       w.TotalSteps,
	}).Info("approval workflow created")
	return w, nil
}

func (s *WorkflowService) Get(ctx context.Context, id string) (*models.ApprovalWorkflow, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWorkflowNotFound
	}
	return w, nil
}

// GetForItemTx loads the workflow gating an item inside tx.
func (s *WorkflowService) GetForItemTx(ctx context.Context, tx *gorm.DB, itemType, itemID string) (*models.ApprovalWorkflow, error) {
	w, err := s.repo.WithTx(tx).GetByItem(ctx, itemType, itemID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWorkflowNotFound
	}
	return w, nil
}

// Advance records approverID's approval of the current step.
func (s *WorkflowService) Advance(ctx context.Context, id string, approverID uint) (*models.ApprovalWorkflow, error) {
	var out *models.ApprovalWorkflow
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			w, err := s.repo.WithTx(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if w == nil {
				return ErrWorkflowNotFound
			}
			out, err = s.AdvanceTx(ctx, tx, w, approverID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdvanceTx applies one approval to w, which must have been read inside tx.
func (s *WorkflowService) AdvanceTx(ctx context.Context, tx *gorm.DB, w *models.ApprovalWorkflow, approverID uint) (*models.ApprovalWorkflow, error) {
	if !w.IsPending() {
		return nil, ErrAlreadyTerminal
	}
	if err := s.authorizeStep(w, approverID, true); err != nil {
		return nil, err
	}

	entry := w.ApplyApproval(approverID, s.now())
	if err := s.repo.WithTx(tx).Save(ctx, w, &entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"workflow_id": w.ID,
		"approver_id": approverID,
		"step":        entry.Step,
		"status":      w.Status,
	}).Info("approval recorded")
	return w, nil
}

// Reject ends the workflow. One rejection at any step is final.
func (s *WorkflowService) Reject(ctx context.Context, id string, rejectorID uint, reason string) (*models.ApprovalWorkflow, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalidArgument("rejection reason is required")
	}

	var out *models.ApprovalWorkflow
	err := retryOnConflict(ctx, s.maxRetries, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			w, err := s.repo.WithTx(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if w == nil {
				return ErrWorkflowNotFound
			}
			out, err = s.RejectTx(ctx, tx, w, rejectorID, reason)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WorkflowService) RejectTx(ctx context.Context, tx *gorm.DB, w *models.ApprovalWorkflow, rejectorID uint, reason string) (*models.ApprovalWorkflow, error) {
	if !w.IsPending() {
		return nil, ErrAlreadyTerminal
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalidArgument("rejection reason is required")
	}
	if err := s.authorizeStep(w, rejectorID, false); err != nil {
		return nil, err
	}

	w.ApplyRejection(rejectorID, reason, s.now())
	if err := s.repo.WithTx(tx).Save(ctx, w, nil); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"workflow_id": w.ID,
		"rejector_id": rejectorID,
		"step":        w.CurrentStep,
	}).Info("workflow rejected")
	return w, nil
}

// authorizeStep checks that actor may sign the current step. A named approver
// list narrows who may sign; the authorizer must still allow the actor.
// Without a list nobody signs twice.
func (s *WorkflowService) authorizeStep(w *models.ApprovalWorkflow, actor uint, approving bool) error {
	if actor == 0 || actor == w.SubjectEmployeeID {
		return ErrNotAuthorized
	}

	if expected, ok := w.ExpectedApprover(); ok {
		if actor != expected {
			return ErrNotAuthorized
		}
	} else if approving && w.HasApproved(actor) {
		return ErrNotAuthorized
	}

	allowed, err := s.authz.CanApprove(actor, w.SubjectEmployeeID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAuthorized
	}
	return nil
}
