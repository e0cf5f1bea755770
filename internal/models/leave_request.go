package models

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// LeaveRequest is created pending and decided exactly once. After the decision only
// the administrative flags may change.
type LeaveRequest struct {
	ID                 string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	EmployeeID         uint          `gorm:"not null;index:idx_leave_requests_employee_dates" json:"employee_id"`
	RequesterID        uint          `gorm:"not null" json:"requester_id"`
	Category           LeaveCategory `gorm:"type:varchar(30);not null" json:"category"`
	StartDate          time.Time     `gorm:"not null;index:idx_leave_requests_employee_dates" json:"start_date"`
	EndDate            time.Time     `gorm:"not null;index:idx_leave_requests_employee_dates" json:"end_date"`
	TotalDays          int           `gorm:"not null" json:"total_days"`
	Reason             string        `gorm:"type:text" json:"reason,omitempty"`
	CoveringEmployeeID *uint         `json:"covering_employee_id,omitempty"`
	MedicalCertificate string        `gorm:"type:varchar(255)" json:"medical_certificate,omitempty"`

	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApproverID      *uint      `json:"approver_id,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	ReservedPaidDays   int `gorm:"not null;default:0" json:"reserved_paid_days"`
	ReservedUnpaidDays int `gorm:"not null;default:0" json:"reserved_unpaid_days"`

	AdminProcessed   bool       `gorm:"not null;default:false" json:"admin_processed"`
	AdminProcessedBy *uint      `json:"admin_processed_by,omitempty"`
	AdminProcessedAt *time.Time `json:"admin_processed_at,omitempty"`
	NotificationSent bool       `gorm:"not null;default:false" json:"notification_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// Year selects the balance row the request is charged against.
func (r *LeaveRequest) Year() int {
	return r.StartDate.Year()
}

func (r *LeaveRequest) IsPending() bool {
	return r.Status == StatusPending
}

func (r *LeaveRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

func (r *LeaveRequest) MarkApproved(approverID uint, at time.Time, res Reservation) {
	r.Status = StatusApproved
	r.ApproverID = &approverID
	r.DecidedAt = &at
	r.RejectionReason = nil
	r.ReservedPaidDays = res.PaidDays
	r.ReservedUnpaidDays = res.UnpaidDays
}

func (r *LeaveRequest) MarkRejected(approverID uint, at time.Time, reason string) {
	r.Status = StatusRejected
	r.ApproverID = &approverID
	r.DecidedAt = &at
	r.RejectionReason = &reason
}

// InclusiveDays counts calendar days from start to end, both included.
func InclusiveDays(start, end time.Time) int {
	start, end = NormalizeDate(start), NormalizeDate(end)
	return int(end.Sub(start)/(24*time.Hour)) + 1
}
