package models

import "time"

const (
	RoleEmployee string = "employee"
	RoleManager  string = "manager"
	RoleHR       string = "hr"
)

type Employee struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ChatID    *int64    `gorm:"uniqueIndex" json:"chat_id,omitempty"`
	FirstName string    `gorm:"not null" json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	ManagerID *uint     `gorm:"index" json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsHR reports whether the employee may act on any other employee's leave.
func (e *Employee) IsHR() bool {
	return e.Role == RoleHR
}

func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

func IsValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleHR:
		return true
	}
	return false
}

func (Employee) TableName() string {
	return "employees"
}
