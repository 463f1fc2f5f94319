package model

import (
	"database/sql/driver"
)

type StaffRole string

const (
	StaffRoleDoctor        StaffRole = "doctor"
	StaffRoleNurse         StaffRole = "nurse"
	StaffRoleTechnician    StaffRole = "technician"
	StaffRoleTherapist     StaffRole = "therapist"
	StaffRoleAdministrator StaffRole = "administrator"
)

type StaffStatus string

const (
	StaffStatusOnDuty  StaffStatus = "on-duty"
	StaffStatusOffDuty StaffStatus = "off-duty"
	StaffStatusOnLeave StaffStatus = "on-leave"
)

type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
	ShiftNight   Shift = "night"
)

type ShiftAssignment struct {
	Date  Date  `json:"date"`
	Shift Shift `json:"shift" binding:"required,oneof=morning evening night"`
}

// Schedule is persisted as a JSONB column.
type Schedule []ShiftAssignment

func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		s = Schedule{}
	}
	return valueJSON(s)
}

func (s *Schedule) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// On returns the shift scheduled for day, if any.
func (s Schedule) On(day Date) (Shift, bool) {
	for _, a := range s {
		if a.Date.Equal(day.Time) {
			return a.Shift, true
		}
	}
	return "", false
}

type Staff struct {
	Base
	EmployeeID     string      `json:"employeeId" db:"employee_id"`
	Name           string      `json:"name" db:"name"`
	Email          string      `json:"email" db:"email"`
	Phone          string      `json:"phone" db:"phone"`
	Role           StaffRole   `json:"role" db:"role"`
	Department     string      `json:"department" db:"department"`
	Specialization string      `json:"specialization" db:"specialization"`
	Shift          Shift       `json:"shift" db:"shift"`
	Status         StaffStatus `json:"status" db:"status"`
	Schedule       Schedule    `json:"schedule" db:"schedule"`
}

type CreateStaffRequest struct {
	EmployeeID     string      `json:"employeeId" binding:"required,max=30"`
	Name           string      `json:"name" binding:"required,min=2,max=100"`
	Email          string      `json:"email" binding:"required,email"`
	Phone          string      `json:"phone" binding:"omitempty,max=20"`
	Role           StaffRole   `json:"role" binding:"required,oneof=doctor nurse technician therapist administrator"`
	Department     string      `json:"department" binding:"omitempty,max=100"`
	Specialization string      `json:"specialization" binding:"omitempty,max=100"`
	Shift          Shift       `json:"shift" binding:"required,oneof=morning evening night"`
	Status         StaffStatus `json:"status" binding:"omitempty,oneof=on-duty off-duty on-leave"`
	Schedule       Schedule    `json:"schedule" binding:"omitempty,dive"`
}

type UpdateStaffRequest struct {
	EmployeeID     *string    `json:"employeeId" binding:"omitempty,max=30"`
	Name           *string    `json:"name" binding:"omitempty,min=2,max=100"`
	Email          *string    `json:"email" binding:"omitempty,email"`
	Phone          *string    `json:"phone" binding:"omitempty,max=20"`
	Role           *StaffRole `json:"role" binding:"omitempty,oneof=doctor nurse technician therapist administrator"`
	Department     *string    `json:"department" binding:"omitempty,max=100"`
	Specialization *string    `json:"specialization" binding:"omitempty,max=100"`
	Shift          *Shift     `json:"shift" binding:"omitempty,oneof=morning evening night"`
}

type UpdateStaffStatusRequest struct {
	Status StaffStatus `json:"status" binding:"required,oneof=on-duty off-duty on-leave"`
}

type UpdateScheduleRequest struct {
	Schedule Schedule `json:"schedule" binding:"required,dive"`
}

type StaffFilters struct {
	BaseFilter
	Role       StaffRole   `form:"role" binding:"omitempty,oneof=doctor nurse technician therapist administrator"`
	Status     StaffStatus `form:"status" binding:"omitempty,oneof=on-duty off-duty on-leave"`
	Shift      Shift       `form:"shift" binding:"omitempty,oneof=morning evening night"`
	Department string      `form:"department"`
	// Date restricts the list to staff scheduled on that day (YYYY-MM-DD).
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (f *StaffFilters) Matches(s *Staff) bool {
	if f == nil {
		return true
	}
	if f.Role != "" && s.Role != f.Role {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Department != "" && s.Department != f.Department {
		return false
	}
	if f.Date != "" {
		day, err := ParseDate(f.Date)
		if err != nil {
			return false
		}
		shift, ok := s.Schedule.On(day)
		if !ok || (f.Shift != "" && shift != f.Shift) {
			return false
		}
	} else if f.Shift != "" && s.Shift != f.Shift {
		return false
	}
	return f.MatchesSearch(s.Name, s.Email, s.EmployeeID, s.Specialization)
}
