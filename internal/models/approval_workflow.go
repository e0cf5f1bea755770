package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const ItemTypeLeaveRequest = "leave_request"

// ApproverList is an ordered list of employee ids stored as a JSON array.
type ApproverList []uint

func (l ApproverList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ApproverList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("approver list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}

// ApprovalWorkflow is a sequential multi-approver gate for any item type.
//
// While pending, len(Approvals) == CurrentStep-1. Once CurrentStep passes TotalSteps
// the workflow is approved; a single rejection ends it. Both end states are final.
type ApprovalWorkflow struct {
	ID                string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	ItemType          string       `gorm:"type:varchar(40);not null;uniqueIndex:idx_approval_workflows_item" json:"item_type"`
	ItemID            string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_approval_workflows_item" json:"item_id"`
	RequesterID       uint         `gorm:"not null" json:"requester_id"`
	SubjectEmployeeID uint         `gorm:"not null;index" json:"subject_employee_id"`
	Approvers         ApproverList `gorm:"type:text" json:"approvers,omitempty"`
	TotalSteps        int          `gorm:"not null" json:"total_steps"`
	CurrentStep       int          `gorm:"not null;default:1" json:"current_step"`
	Status            string       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectedBy        *uint        `json:"rejected_by,omitempty"`
	RejectionReason   *string      `gorm:"type:text" json:"rejection_reason,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	Version           int          `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`

	Approvals []WorkflowApproval `gorm:"foreignKey:WorkflowID" json:"approved_by"`
}

func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}

// WorkflowApproval is one append-only entry of approvedBy.
type WorkflowApproval struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	WorkflowID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_workflow_approvals_step" json:"-"`
	Step       int       `gorm:"not null;uniqueIndex:idx_workflow_approvals_step" json:"step"`
	ApproverID uint      `gorm:"not null" json:"approver_id"`
	ApprovedAt time.Time `gorm:"not null" json:"approved_at"`
}

func (WorkflowApproval) TableName() string {
	return "workflow_approvals"
}

func (w *ApprovalWorkflow) IsPending() bool {
	return w.Status == StatusPending
}

// ExpectedApprover returns the approver named for the current step, if the
// workflow was created with an explicit list.
func (w *ApprovalWorkflow) ExpectedApprover() (uint, bool) {
	if len(w.Approvers) == 0 || w.CurrentStep < 1 || w.CurrentStep > len(w.Approvers) {
		return 0, false
	}
	return w.Approvers[w.CurrentStep-1], true
}

// HasApproved reports whether approverID already signed an earlier step.
func (w *ApprovalWorkflow) HasApproved(approverID uint) bool {
	for _, a := range w.Approvals {
		if a.ApproverID == approverID {
			return true
		}
	}
	return false
}

// ApplyApproval appends the approval and moves to the next step.
func (w *ApprovalWorkflow) ApplyApproval(approverID uint, at time.Time) WorkflowApproval {
	entry := WorkflowApproval{
		WorkflowID: w.ID,
		Step:       w.CurrentStep,
		ApproverID: approverID,
		ApprovedAt: at,
	}
	w.Approvals = append(w.Approvals, entry)
	w.CurrentStep++
	if w.CurrentStep > w.TotalSteps {
		w.Status = StatusApproved
		w.CompletedAt = &at
	}
	return entry
}

func (w *ApprovalWorkflow) ApplyRejection(rejectorID uint, reason string, at time.Time) {
	w.Status = StatusRejected
	w.RejectedBy = &rejectorID
	w.RejectionReason = &reason
	w.CompletedAt = &at
}
