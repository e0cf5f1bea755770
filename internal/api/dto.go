package api

import (
	"time"

	"leave-ledger/internal/models"
	"leave-ledger/internal/service"
)

type CreateEmployeeRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	ChatID    *int64 `json:"chat_id"`
	Role      string `json:"role" validate:"omitempty,oneof=employee manager hr"`
	ManagerID *uint  `json:"manager_id"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee manager hr"`
}

type EntitlementsRequest struct {
	SickPaid      int `json:"sick_paid" validate:"min=0"`
	SickUnpaid    int `json:"sick_unpaid" validate:"min=0"`
	CasualPaid    int `json:"casual_paid" validate:"min=0"`
	CasualUnpaid  int `json:"casual_unpaid" validate:"min=0"`
	Bereavement   int `json:"bereavement" validate:"min=0"`
	PublicHoliday int `json:"public_holiday" validate:"min=0"`
	UnpaidLeave   int `json:"unpaid_leave" validate:"min=0"`
}

func (r EntitlementsRequest) toModel() models.Entitlements {
	return models.Entitlements{
		SickPaid:      r.SickPaid,
		SickUnpaid:    r.SickUnpaid,
		CasualPaid:    r.CasualPaid,
		CasualUnpaid:  r.CasualUnpaid,
		Bereavement:   r.Bereavement,
		PublicHoliday: r.PublicHoliday,
		UnpaidLeave:   r.UnpaidLeave,
	}
}

type SubmitLeaveRequest struct {
	EmployeeID         uint   `json:"employee_id"`
	Category           string `json:"category" validate:"required,oneof=sick casual bereavement public_holiday unpaid"`
	StartDate          string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason             string `json:"reason" validate:"max=1000"`
	CoveringEmployeeID *uint  `json:"covering_employee_id"`
	MedicalCertificate string `json:"medical_certificate" validate:"max=255"`
}

// toInput builds the service input. Dates were checked by the validator.
func (r SubmitLeaveRequest) toInput(actorID uint) service.SubmitLeaveInput {
	start, _ := time.Parse(models.DayLayout, r.StartDate)
	end, _ := time.Parse(models.DayLayout, r.EndDate)

	employeeID := r.EmployeeID
	if employeeID == 0 {
		employeeID = actorID
	}
	return service.SubmitLeaveInput{
		EmployeeID:         employeeID,
		RequesterID:        actorID,
		Category:           models.LeaveCategory(r.Category),
		StartDate:          start,
		EndDate:            end,
		Reason:             r.Reason,
		CoveringEmployeeID: r.CoveringEmployeeID,
		AttachmentRef:      r.MedicalCertificate,
	}
}

type DecisionRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approved rejected"`
	Reason  string `json:"reason" validate:"required_if=Outcome rejected,max=500"`
}

type AttachDocumentRequest struct {
	Kind        string `json:"kind" validate:"omitempty,max=40"`
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"max=100"`
}

type CreateWorkflowRequest struct {
	ItemType          string `json:"item_type" validate:"required,max=40"`
	ItemID            string `json:"item_id" validate:"required,max=64"`
	SubjectEmployeeID uint   `json:"subject_employee_id" validate:"required"`
	Approvers         []uint `json:"approvers" validate:"omitempty,dive,required"`
	Steps             int    `json:"steps" validate:"min=0"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
