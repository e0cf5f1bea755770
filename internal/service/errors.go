package service

import (
	"errors"
	"net/http"

	"leave-ledger/internal/apperror"
)

var (
	ErrEmployeeNotFound     = apperror.New(apperror.CodeNotFound, "employee not found", http.StatusNotFound)
	ErrLeaveRequestNotFound = apperror.New(apperror.CodeNotFound, "leave request not found", http.StatusNotFound)
	ErrWorkflowNotFound     = apperror.New(apperror.CodeNotFound, "approval workflow not found", http.StatusNotFound)

	ErrInvalidState    = apperror.New(apperror.CodeInvalidState, "leave request is not pending", http.StatusConflict)
	ErrAlreadyTerminal = apperror.New(apperror.CodeInvalidState, "approval workflow already completed", http.StatusConflict)

	ErrNotAuthorized     = apperror.New(apperror.CodeForbidden, "not authorized for this action", http.StatusForbidden)
	ErrMissingAttachment = apperror.New(apperror.CodeMissingAttachment, "sick leave requires a medical certificate", http.StatusUnprocessableEntity)
	ErrInvalidArgument   = apperror.New(apperror.CodeInvalidInput, "invalid argument", http.StatusBadRequest)

	ErrReservationConflict = apperror.New(apperror.CodeReservationConflict, "concurrent update, retry the operation", http.StatusConflict)

	ErrLeaveOverlap   = apperror.New(apperror.CodeConflict, "leave overlaps an existing request", http.StatusConflict)
	ErrWorkflowExists = apperror.New(apperror.CodeConflict, "approval workflow already exists for item", http.StatusConflict)
	ErrEmployeeExists = apperror.New(apperror.CodeConflict, "chat is already linked to an employee", http.StatusConflict)
)

func invalidArgument(msg string) error {
	return apperror.Wrap(ErrInvalidArgument, errors.New(msg))
}
