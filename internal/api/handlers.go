package api

import (
	"context"
	"net/http"
	"strconv"

	"leave-ledger/internal/apperror"
	"leave-ledger/internal/models"
	"leave-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type EmployeeService interface {
	Create(ctx context.Context, in service.CreateEmployeeInput) (*models.Employee, error)
	Get(ctx context.Context, id uint) (*models.Employee, error)
	List(ctx context.Context) ([]models.Employee, error)
	UpdateRole(ctx context.Context, actorID, targetID uint, role string) (*models.Employee, error)
}

type LeaveService interface {
	Submit(ctx context.Context, in service.SubmitLeaveInput) (*models.LeaveRequest, error)
	Get(ctx context.Context, id string) (*models.LeaveRequest, error)
	Decide(ctx context.Context, in service.DecideInput) (*models.LeaveRequest, error)
	ProcessAdministratively(ctx context.Context, requestID string, adminID uint) (*models.LeaveRequest, error)
	AttachDocument(ctx context.Context, in service.AttachDocumentInput) (*models.LeaveDocument, error)
	GetBalance(ctx context.Context, employeeID uint, year int) (*service.BalanceSnapshot, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]models.LeaveRequest, error)
	ListDocuments(ctx context.Context, requestID string) ([]models.LeaveDocument, error)
}

type CalendarService interface {
	GetNonWorkingDaysForMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error)
}

type EntitlementService interface {
	SetEntitlements(ctx context.Context, employeeID uint, year int, ent models.Entitlements) (*service.BalanceSnapshot, error)
}

type WorkflowService interface {
	Create(ctx context.Context, in service.CreateWorkflowInput) (*models.ApprovalWorkflow, error)
	Get(ctx context.Context, id string) (*models.ApprovalWorkflow, error)
	Advance(ctx context.Context, id string, approverID uint) (*models.ApprovalWorkflow, error)
	Reject(ctx context.Context, id string, rejectorID uint, reason string) (*models.ApprovalWorkflow, error)
}

// Authorizer gates the HR-only endpoints.
type Authorizer interface {
	CanProcess(adminID uint) (bool, error)
}

type Deps struct {
	Employees    EmployeeService
	Leave        LeaveService
	Entitlements EntitlementService
	Workflows    WorkflowService
	Calendar     CalendarService
	Authz        Authorizer
	// Health reports storage reachability for /healthz.
	Health func(ctx context.Context) error
	Logger *logrus.Logger
}

type Handler struct {
	employees    EmployeeService
	leave        LeaveService
	entitlements EntitlementService
	workflows    WorkflowService
	calendar     CalendarService
	authz        Authorizer
	health       func(ctx context.Context) error
	validate     *validator.Validate
	logger       *logrus.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Health == nil {
		d.Health = func(context.Context) error { return nil }
	}
	return &Handler{
		employees:    d.Employees,
		leave:        d.Leave,
		entitlements: d.Entitlements,
		workflows:    d.Workflows,
		calendar:     d.Calendar,
		authz:        d.Authz,
		health:       d.Health,
		validate:     newValidator(),
		logger:       d.Logger,
	}
}

var errBadPath = apperror.New(apperror.CodeInvalidInput, "invalid path parameter", http.StatusBadRequest)

func pathUint(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperror.Wrap(errBadPath, err)
	}
	return uint(v), nil
}

func pathYear(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || v <= 0 {
		return 0, apperror.Wrap(errBadPath, err)
	}
	return v, nil
}

func pathMonth(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || v < 1 || v > 12 {
		return 0, apperror.Wrap(errBadPath, err)
	}
	return v, nil
}

func (h *Handler) requireHR(ctx context.Context) error {
	ok, err := h.authz.CanProcess(actorFrom(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrNotAuthorized
	}
	return nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health(r.Context()); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		fail(w, http.StatusServiceUnavailable, "UNAVAILABLE", "storage unreachable", nil)
		return
	}
	success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.requireHR(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}

	var req CreateEmployeeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	emp, err := h.employees.Create(r.Context(), service.CreateEmployeeInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ChatID:    req.ChatID,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, emp)
}

// ListEmployees returns the whole directory. HR only.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	if err := h.requireHR(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}

	emps, err := h.employees.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, emps)
}

func (h *Handler) UpdateEmployeeRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req UpdateRoleRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	emp, err := h.employees.UpdateRole(r.Context(), actorFrom(r.Context()), id, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, emp)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	emp, err := h.employees.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, emp)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.leave.GetBalance(r.Context(), id, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, snap)
}

func (h *Handler) ListEmployeeLeave(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	requests, err := h.leave.ListByEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, requests)
}

// SetEntitlements seeds the pool totals of an employee year. HR only.
func (h *Handler) SetEntitlements(w http.ResponseWriter, r *http.Request) {
	if err := h.requireHR(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req EntitlementsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.employees.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.entitlements.SetEntitlements(r.Context(), id, year, req.toModel())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, snap)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.leave.Submit(r.Context(), req.toInput(actorFrom(r.Context())))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, created)
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.leave.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, req)
}

func (h *Handler) DecideLeave(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if err := h.decodeAndValidate(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	decided, err := h.leave.Decide(r.Context(), service.DecideInput{
		RequestID:  chi.URLParam(r, "id"),
		ApproverID: actorFrom(r.Context()),
		Outcome:    body.Outcome,
		Reason:     body.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, decided)
}

func (h *Handler) ProcessLeave(w http.ResponseWriter, r *http.Request) {
	processed, err := h.leave.ProcessAdministratively(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, processed)
}

func (h *Handler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	var body AttachDocumentRequest
	if err := h.decodeAndValidate(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := h.leave.AttachDocument(r.Context(), service.AttachDocumentInput{
		RequestID:   chi.URLParam(r, "id"),
		UploaderID:  actorFrom(r.Context()),
		Kind:        body.Kind,
		FileName:    body.FileName,
		ContentType: body.ContentType,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.leave.ListDocuments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, docs)
}

// =============================================================================
// WORKFLOWS
// =============================================================================

func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body CreateWorkflowRequest
	if err := h.decodeAndValidate(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	wf, err := h.workflows.Create(r.Context(), service.CreateWorkflowInput{
		ItemType:          body.ItemType,
		ItemID:            body.ItemID,
		RequesterID:       actorFrom(r.Context()),
		SubjectEmployeeID: body.SubjectEmployeeID,
		Approvers:         body.Approvers,
		Steps:             body.Steps,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, wf)
}

func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, wf)
}

func (h *Handler) AdvanceWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Advance(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, wf)
}

func (h *Handler) RejectWorkflow(w http.ResponseWriter, r *http.Request) {
	var body RejectRequest
	if err := h.decodeAndValidate(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	wf, err := h.workflows.Reject(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()), body.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, wf)
}

// =============================================================================
// CALENDAR
// =============================================================================

func (h *Handler) ListNonWorkingDays(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	month, err := pathMonth(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	days, err := h.calendar.GetNonWorkingDaysForMonth(r.Context(), year, month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Day)
	}
	success(w, http.StatusOK, map[string]any{"year": year, "month": month, "days": out})
}
