package models

import (
	"errors"
	"fmt"
	"time"
)

type LeaveCategory string

const (
	CategorySick          LeaveCategory = "sick"
	CategoryCasual        LeaveCategory = "casual"
	CategoryBereavement   LeaveCategory = "bereavement"
	CategoryPublicHoliday LeaveCategory = "public_holiday"
	CategoryUnpaid        LeaveCategory = "unpaid"
)

func (c LeaveCategory) IsValid() bool {
	switch c {
	case CategorySick, CategoryCasual, CategoryBereavement, CategoryPublicHoliday, CategoryUnpaid:
		return true
	}
	return false
}

// HasPaidSplit reports whether the category overflows from a paid into an unpaid pool.
func (c LeaveCategory) HasPaidSplit() bool {
	return c == CategorySick || c == CategoryCasual
}

type Pool string

const (
	PoolSickPaid      Pool = "sick_paid"
	PoolSickUnpaid    Pool = "sick_unpaid"
	PoolCasualPaid    Pool = "casual_paid"
	PoolCasualUnpaid  Pool = "casual_unpaid"
	PoolBereavement   Pool = "bereavement"
	PoolPublicHoliday Pool = "public_holiday"
	PoolUnpaidLeave   Pool = "unpaid_leave"
)

var AllPools = []Pool{
	PoolSickPaid, PoolSickUnpaid,
	PoolCasualPaid, PoolCasualUnpaid,
	PoolBereavement, PoolPublicHoliday, PoolUnpaidLeave,
}

// Entitlements are the pre-seeded pool totals of one employee year.
type Entitlements struct {
	SickPaid      int `json:"sick_paid"`
	SickUnpaid    int `json:"sick_unpaid"`
	CasualPaid    int `json:"casual_paid"`
	CasualUnpaid  int `json:"casual_unpaid"`
	Bereavement   int `json:"bereavement"`
	PublicHoliday int `json:"public_holiday"`
	UnpaidLeave   int `json:"unpaid_leave"`
}

func (e Entitlements) Validate() error {
	for _, v := range []int{e.SickPaid, e.SickUnpaid, e.CasualPaid, e.CasualUnpaid, e.Bereavement, e.PublicHoliday, e.UnpaidLeave} {
		if v < 0 {
			return errors.New("entitlement totals must be non-negative")
		}
	}
	return nil
}

// LeaveBalance is the per employee, per calendar year ledger row.
// Used counters only grow; they are changed through Reserve alone.
type LeaveBalance struct {
	ID         uint `gorm:"primarykey" json:"id"`
	EmployeeID uint `gorm:"not null;uniqueIndex:idx_leave_balances_employee_year" json:"employee_id"`
	Year       int  `gorm:"not null;uniqueIndex:idx_leave_balances_employee_year" json:"year"`

	SickPaidTotal      int `gorm:"not null;default:0" json:"sick_paid_total"`
	SickPaidUsed       int `gorm:"not null;default:0" json:"sick_paid_used"`
	SickUnpaidTotal    int `gorm:"not null;default:0" json:"sick_unpaid_total"`
	SickUnpaidUsed     int `gorm:"not null;default:0" json:"sick_unpaid_used"`
	CasualPaidTotal    int `gorm:"not null;default:0" json:"casual_paid_total"`
	CasualPaidUsed     int `gorm:"not null;default:0" json:"casual_paid_used"`
	CasualUnpaidTotal  int `gorm:"not null;default:0" json:"casual_unpaid_total"`
	CasualUnpaidUsed   int `gorm:"not null;default:0" json:"casual_unpaid_used"`
	BereavementTotal   int `gorm:"not null;default:0" json:"bereavement_total"`
	BereavementUsed    int `gorm:"not null;default:0" json:"bereavement_used"`
	PublicHolidayTotal int `gorm:"not null;default:0" json:"public_holiday_total"`
	PublicHolidayUsed  int `gorm:"not null;default:0" json:"public_holiday_used"`
	UnpaidLeaveTotal   int `gorm:"not null;default:0" json:"unpaid_leave_total"`
	UnpaidLeaveUsed    int `gorm:"not null;default:0" json:"unpaid_leave_used"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

// NewLeaveBalance returns an unsaved row with all used counters at zero.
func NewLeaveBalance(employeeID uint, year int, ent Entitlements) *LeaveBalance {
	b := &LeaveBalance{EmployeeID: employeeID, Year: year, Version: 1}
	b.SetEntitlements(ent)
	return b
}

func (b *LeaveBalance) SetEntitlements(ent Entitlements) {
	b.SickPaidTotal = ent.SickPaid
	b.SickUnpaidTotal = ent.SickUnpaid
	b.CasualPaidTotal = ent.CasualPaid
	b.CasualUnpaidTotal = ent.CasualUnpaid
	b.BereavementTotal = ent.Bereavement
	b.PublicHolidayTotal = ent.PublicHoliday
	b.UnpaidLeaveTotal = ent.UnpaidLeave
}

func (b *LeaveBalance) Entitlements() Entitlements {
	return Entitlements{
		SickPaid:      b.SickPaidTotal,
		SickUnpaid:    b.SickUnpaidTotal,
		CasualPaid:    b.CasualPaidTotal,
		CasualUnpaid:  b.CasualUnpaidTotal,
		Bereavement:   b.BereavementTotal,
		PublicHoliday: b.PublicHolidayTotal,
		UnpaidLeave:   b.UnpaidLeaveTotal,
	}
}

// counters returns pointers to the total and used fields of p.
func (b *LeaveBalance) counters(p Pool) (total, used *int) {
	switch p {
	case PoolSickPaid:
		return &b.SickPaidTotal, &b.SickPaidUsed
	case PoolSickUnpaid:
		return &b.SickUnpaidTotal, &b.SickUnpaidUsed
	case PoolCasualPaid:
		return &b.CasualPaidTotal, &b.CasualPaidUsed
	case PoolCasualUnpaid:
		return &b.CasualUnpaidTotal, &b.CasualUnpaidUsed
	case PoolBereavement:
		return &b.BereavementTotal, &b.BereavementUsed
	case PoolPublicHoliday:
		return &b.PublicHolidayTotal, &b.PublicHolidayUsed
	case PoolUnpaidLeave:
		return &b.UnpaidLeaveTotal, &b.UnpaidLeaveUsed
	}
	return nil, nil
}

// Total returns the entitlement of p.
func (b *LeaveBalance) Total(p Pool) int {
	total, _ := b.counters(p)
	if total == nil {
		return 0
	}
	return *total
}

// Used returns the consumption of p.
func (b *LeaveBalance) Used(p Pool) int {
	_, used := b.counters(p)
	if used == nil {
		return 0
	}
	return *used
}

// Remaining is total minus used, never below zero.
func (b *LeaveBalance) Remaining(p Pool) int {
	r := b.Total(p) - b.Used(p)
	if r < 0 {
		return 0
	}
	return r
}

// PoolsFor returns the (paid, unpaid) pools of a category. Single-pool categories
// return the same pool twice.
func PoolsFor(c LeaveCategory) (paid, unpaid Pool) {
	switch c {
	case CategorySick:
		return PoolSickPaid, PoolSickUnpaid
	case CategoryCasual:
		return PoolCasualPaid, PoolCasualUnpaid
	case CategoryBereavement:
		return PoolBereavement, PoolBereavement
	case CategoryPublicHoliday:
		return PoolPublicHoliday, PoolPublicHoliday
	default:
		return PoolUnpaidLeave, PoolUnpaidLeave
	}
}

// Reservation describes the debit applied for one approved request.
type Reservation struct {
	Category   LeaveCategory `json:"category"`
	Days       int           `json:"days"`
	PaidPool   Pool          `json:"paid_pool,omitempty"`
	PaidDays   int           `json:"paid_days"`
	UnpaidPool Pool          `json:"unpaid_pool,omitempty"`
	UnpaidDays int           `json:"unpaid_days"`
}

// Reserve debits days from the category's pools in memory.
// Split categories drain the paid pool first and put the rest on the unpaid pool,
// which has no ceiling. Single pools are debited without a capacity check.
func (b *LeaveBalance) Reserve(c LeaveCategory, days int) (Reservation, error) {
	if !c.IsValid() {
		return Reservation{}, fmt.Errorf("unknown leave category %q", c)
	}
	if days <= 0 {
		return Reservation{}, errors.New("days must be positive")
	}

	res := Reservation{Category: c, Days: days}
	paid, unpaid := PoolsFor(c)

	switch {
	case c.HasPaidSplit():
		fromPaid := b.Remaining(paid)
		if fromPaid > days {
			fromPaid = days
		}
		res.PaidPool, res.PaidDays = paid, fromPaid
		if rest := days - fromPaid; rest > 0 {
			res.UnpaidPool, res.UnpaidDays = unpaid, rest
		}
	case c == CategoryUnpaid:
		res.UnpaidPool, res.UnpaidDays = unpaid, days
	default:
		res.PaidPool, res.PaidDays = paid, days
	}

	if res.PaidDays > 0 {
		_, used := b.counters(res.PaidPool)
		*used += res.PaidDays
	}
	if res.UnpaidDays > 0 {
		_, used := b.counters(res.UnpaidPool)
		*used += res.UnpaidDays
	}
	return res, nil
}

// CategoryUsed is paid plus unpaid consumption of a category.
func (b *LeaveBalance) CategoryUsed(c LeaveCategory) int {
	paid, unpaid := PoolsFor(c)
	if paid == unpaid {
		return b.Used(paid)
	}
	return b.Used(paid) + b.Used(unpaid)
}
