package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leave-ledger/internal/models"
	"leave-ledger/internal/notify"
	"leave-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WorkingDayCounter computes the chargeable days of a period.
type WorkingDayCounter interface {
	CountWorkingDays(ctx context.Context, start, end time.Time) (int, error)
}

// AttachmentChecker answers whether a request carries its required documents.
type AttachmentChecker interface {
	HasRequiredAttachment(ctx context.Context, req *models.LeaveRequest) (bool, error)
}

type LeaveServiceDeps struct {
	DB          *gorm.DB
	Requests    repository.LeaveRequestRepository
	Employees   repository.EmployeeRepository
	Ledger      *BalanceLedger
	Workflows   *WorkflowService
	Documents   *DocumentService
	Attachments AttachmentChecker
	Calendar    WorkingDayCounter
	Authz       Authorizer
	Notifier    notify.Notifier

	// ApprovalSteps is the number of sign-offs a new request needs.
	ApprovalSteps int
	MaxRetries    int
	Logger        *logrus.Logger
}

type SubmitLeaveInput struct {
	EmployeeID         uint
	RequesterID        uint
	Category           models.LeaveCategory
	StartDate          time.Time
	EndDate            time.Time
	Reason             string
	CoveringEmployeeID *uint
	AttachmentRef      string
}

type DecideInput struct {
	RequestID  string
	ApproverID uint
	// Outcome is models.StatusApproved or models.StatusRejected.
	Outcome string
	Reason  string
}

// LeaveService runs the leave lifecycle. Every decision commits the workflow
// step, the balance debit and the request status together or not at all.
type LeaveService struct {
	db          *gorm.DB
	requests    repository.LeaveRequestRepository
	employees   repository.EmployeeRepository
	ledger      *BalanceLedger
	workflows   *WorkflowService
	documents   *DocumentService
	attachments AttachmentChecker
	calendar    WorkingDayCounter
	authz       Authorizer
	notifier    notify.Notifier
	steps       int
	maxRetries  int
	now         func() time.Time
	logger      *logrus.Logger
}

func NewLeaveService(d LeaveServiceDeps) *LeaveService {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Attachments == nil {
		d.Attachments = d.Documents
	}
	if d.ApprovalSteps < 1 {
		d.ApprovalSteps = 1
	}

	return &LeaveService{
		db:          d.DB,
		requests:    d.Requests,
		employees:   d.Employees,
		ledger:      d.Ledger,
		workflows:   d.Workflows,
		documents:   d.Documents,
		attachments: d.Attachments,
		calendar:    d.Calendar,
		authz:       d.Authz,
		notifier:    d.Notifier,
		steps:       d.ApprovalSteps,
		maxRetries:  d.MaxRetries,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      d.Logger,
	}
}

// Submit creates a pending request together with its approval workflow.
func (s *LeaveService) Submit(ctx context.Context, in SubmitLeaveInput) (*models.LeaveRequest, error) {
	if !in.Category.IsValid() {
		return nil, invalidArgument("unknown leave category " + string(in.Category))
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, invalidArgument("start and end dates are required")
	}
	start, end := models.NormalizeDate(in.StartDate), models.NormalizeDate(in.EndDate)
	if end.Before(start) {
		return nil, invalidArgument("end date is before start date")
	}
	if in.RequesterID == 0 {
		in.RequesterID = in.EmployeeID
	}

	if err := s.mustExist(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	if in.RequesterID != in.EmployeeID {
		if err := s.mustExist(ctx, in.RequesterID); err != nil {
			return nil, err
		}
		ok, err := s.authz.CanApprove(in.RequesterID, in.EmployeeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	days, err := s.calendar.CountWorkingDays(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, invalidArgument("period contains no working days")
	}

	req := &models.LeaveRequest{
		ID:                 uuid.NewString(),
		EmployeeID:         in.EmployeeID,
		RequesterID:        in.RequesterID,
		Category:           in.Category,
		StartDate:          start,
		EndDate:            end,
		TotalDays:          days,
		Reason:             strings.TrimSpace(in.Reason),
		CoveringEmployeeID: in.CoveringEmployeeID,
		MedicalCertificate: strings.TrimSpace(in.AttachmentRef),
		Status:             models.StatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requests.WithTx(tx)
		overlap, err := requests.HasOverlappingPeriod(ctx, req.EmployeeID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return ErrLeaveOverlap
		}
		if err := requests.Create(ctx, req); err != nil {
			return err
		}
		_, err = s.workflows.CreateTx(ctx, tx, CreateWorkflowInput{
			ItemType:          models.ItemTypeLeaveRequest,
			ItemID:            req.ID,
			RequesterID:       req.RequesterID,
			SubjectEmployeeID: req.EmployeeID,
			Steps:             s.steps,
		})
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrLeaveOverlap) {
			s.logger.WithError(err).WithField("employee_id", in.EmployeeID).Error("failed to submit leave request")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"employee_id": req.EmployeeID,
		"category":    req.Category,
		"days":        req.TotalDays,
	}).Info("leave request submitted")
	s.emit(ctx, notify.EventSubmitted, req, req.RequesterID)
	return req, nil
}

// Decide applies one approver's outcome. Approval of the last workflow step
// debits the balance; rejection never touches it.
func (s *LeaveService) Decide(ctx context.Context, in DecideInput) (*models.LeaveRequest, error) {
	req, err := s.Get(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, ErrInvalidState
	}

	in.Reason = strings.TrimSpace(in.Reason)
	switch in.Outcome {
	case models.StatusApproved:
	case models.StatusRejected:
		if in.Reason == "" {
			return nil, invalidArgument("rejection reason is required")
		}
	default:
		return nil, invalidArgument("outcome must be approved or rejected")
	}

	allowed, err := s.authz.CanApprove(in.ApproverID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAuthorized
	}

	if in.Outcome == models.StatusApproved && req.Category == models.CategorySick {
		ok, err := s.attachments.HasRequiredAttachment(ctx, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrMissingAttachment
		}
	}

	var (
		decided *models.LeaveRequest
		event   notify.EventType
	)
	err = retryOnConflict(ctx, s.maxRetries, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			decided, event, err = s.decideTx(ctx, tx, in)
			return err
		})
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id":  in.RequestID,
			"approver_id": in.ApproverID,
			"outcome":     in.Outcome,
		}).Warn("leave decision failed")
		return nil, err
	}

	if decided.Status == models.StatusApproved {
		s.ledger.Invalidate(ctx, decided.EmployeeID, decided.Year())
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  decided.ID,
		"approver_id": in.ApproverID,
		"status":      decided.Status,
		"paid_days":   decided.ReservedPaidDays,
		"unpaid_days": decided.ReservedUnpaidDays,
	}).Info("leave decision committed")
	s.emit(ctx, event, decided, in.ApproverID)
	return decided, nil
}

func (s *LeaveService) decideTx(ctx context.Context, tx *gorm.DB, in DecideInput) (*models.LeaveRequest, notify.EventType, error) {
	requests := s.requests.WithTx(tx)
	req, err := requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, "", err
	}
	if req == nil {
		return nil, "", ErrLeaveRequestNotFound
	}
	if !req.IsPending() {
		return nil, "", ErrInvalidState
	}

	w, err := s.workflows.GetForItemTx(ctx, tx, models.ItemTypeLeaveRequest, req.ID)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	if in.Outcome == models.StatusRejected {
		if _, err := s.workflows.RejectTx(ctx, tx, w, in.ApproverID, in.Reason); err != nil {
			return nil, "", err
		}
		req.MarkRejected(in.ApproverID, now, in.Reason)
		if err := requests.UpdateDecision(ctx, req); err != nil {
			return nil, "", err
		}
		return req, notify.EventRejected, nil
	}

	if _, err := s.workflows.AdvanceTx(ctx, tx, w, in.ApproverID); err != nil {
		return nil, "", err
	}
	if w.IsPending() {
		return req, notify.EventStepApproved, nil
	}

	res, err := s.ledger.ReserveTx(ctx, tx, req.EmployeeID, req.Year(), req.Category, req.TotalDays)
	if err != nil {
		return nil, "", err
	}
	req.MarkApproved(in.ApproverID, now, res)
	if err := requests.UpdateDecision(ctx, req); err != nil {
		return nil, "", err
	}
	return req, notify.EventApproved, nil
}

// ProcessAdministratively marks a decided request as handled by HR. Repeating
// it is a no-op; the ledger and the status are never touched.
func (s *LeaveService) ProcessAdministratively(ctx context.Context, requestID string, adminID uint) (*models.LeaveRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanProcess(adminID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAuthorized
	}

	if !req.IsTerminal() {
		return nil, ErrInvalidState
	}
	if req.AdminProcessed {
		return req, nil
	}

	changed, err := s.requests.MarkProcessed(ctx, requestID, adminID, s.now())
	if err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Error("failed to mark request processed")
		return nil, err
	}

	req, err = s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.WithFields(logrus.Fields{"request_id": requestID, "admin_id": adminID}).Info("leave request processed")
		s.emit(ctx, notify.EventProcessed, req, adminID)
	}
	return req, nil
}

// AttachDocument records a document reference on a pending request.
func (s *LeaveService) AttachDocument(ctx context.Context, in AttachDocumentInput) (*models.LeaveDocument, error) {
	req, err := s.Get(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, ErrInvalidState
	}

	if in.UploaderID != req.EmployeeID && in.UploaderID != req.RequesterID {
		ok, err := s.authz.CanApprove(in.UploaderID, req.EmployeeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	return s.documents.Attach(ctx, in)
}

// GetBalance returns the committed balance of an employee year.
func (s *LeaveService) GetBalance(ctx context.Context, employeeID uint, year int) (*BalanceSnapshot, error) {
	if year <= 0 {
		return nil, invalidArgument("year must be positive")
	}
	if err := s.mustExist(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.ledger.Balance(ctx, employeeID, year)
}

func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrLeaveRequestNotFound
	}
	return req, nil
}

func (s *LeaveService) ListByEmployee(ctx context.Context, employeeID uint) ([]models.LeaveRequest, error) {
	if err := s.mustExist(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.requests.ListByEmployee(ctx, employeeID)
}

func (s *LeaveService) ListDocuments(ctx context.Context, requestID string) ([]models.LeaveDocument, error) {
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	return s.documents.List(ctx, requestID)
}

// ListPendingFor returns the pending requests approverID may decide.
func (s *LeaveService) ListPendingFor(ctx context.Context, approverID uint) ([]models.LeaveRequest, error) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	out := pending[:0]
	for _, req := range pending {
		ok, err := s.authz.CanApprove(approverID, req.EmployeeID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *LeaveService) mustExist(ctx context.Context, employeeID uint) error {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *LeaveService) emit(ctx context.Context, t notify.EventType, req *models.LeaveRequest, actorID uint) {
	event := notify.Event{
		Type:       t,
		RequestID:  req.ID,
		EmployeeID: req.EmployeeID,
		ActorID:    actorID,
		Status:     req.Status,
		Category:   string(req.Category),
		Days:       req.TotalDays,
		OccurredAt: s.now(),
	}
	if req.RejectionReason != nil {
		event.Reason = *req.RejectionReason
	}

	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      t,
			"request_id": req.ID,
		}).Warn("notification failed")
	}
}
