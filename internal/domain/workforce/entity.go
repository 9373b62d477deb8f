// Package workforce models employees, their employment contracts and daily
// attendance records as read by the notification scanners.
package workforce

import (
	"context"
	"time"
)

// AttendanceStatus values recorded per day.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
	StatusLeave   = "Leave"
)

// Employee is a mall staff member.
type Employee struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

// EmploymentContract binds an employee over [StartDate, EndDate).
type EmploymentContract struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     string    `json:"status"`
}

// Attendance is one employee's record for one calendar day.
type Attendance struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
}

// IsActive reports whether the contract is administratively active.
func (c *EmploymentContract) IsActive() bool {
	return c.Status == "Active"
}

// Covers reports whether t falls inside [StartDate, EndDate).
func (c *EmploymentContract) Covers(t time.Time) bool {
	return !t.Before(c.StartDate) && t.Before(c.EndDate)
}

// IsAbsent reports whether the record counts toward the absence limit.
// Leave is excused.
func (a *Attendance) IsAbsent() bool {
	return a.Status == StatusAbsent
}

// EmployeeSource lists and resolves employees.
type EmployeeSource interface {
	ActiveEmployees(ctx context.Context) ([]*Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
}

// EmploymentContractSource is the employee side of the contract ledger.
type EmploymentContractSource interface {
	// ActiveContractsCovering lists active contracts of the employee whose
	// interval contains asOf.
	ActiveContractsCovering(ctx context.Context, employeeID int64, asOf time.Time) ([]*EmploymentContract, error)

	// ActiveContractsEndingBetween lists active contracts whose end date lies
	// in [from, to].
	ActiveContractsEndingBetween(ctx context.Context, from, to time.Time) ([]*EmploymentContract, error)
}

// AttendanceSource answers the two attendance questions the scanners ask.
type AttendanceSource interface {
	HasRecordOn(ctx context.Context, employeeID int64, date time.Time) (bool, error)
	CountAbsencesSince(ctx context.Context, employeeID int64, since time.Time) (int, error)
}

//Personal.AI order the ending
