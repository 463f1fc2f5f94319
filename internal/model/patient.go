package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PatientStatus string

const (
	PatientStatusStable        PatientStatus = "stable"
	PatientStatusCritical      PatientStatus = "critical"
	PatientStatusImproving     PatientStatus = "improving"
	PatientStatusDeteriorating PatientStatus = "deteriorating"
	PatientStatusDischarged    PatientStatus = "discharged"
)

// PatientStatusActive is a filter-only value matching every status but discharged.
const PatientStatusActive PatientStatus = "active"

type EmergencyContact struct {
	Name         string `json:"name" binding:"omitempty,max=100"`
	Relationship string `json:"relationship" binding:"omitempty,max=50"`
	Phone        string `json:"phone" binding:"omitempty,max=20"`
}

func (e EmergencyContact) Value() (driver.Value, error) {
	return valueJSON(e)
}

func (e *EmergencyContact) Scan(src interface{}) error {
	return scanJSON(src, e)
}

// Patient is an ICU admission. BedNumber and RoomNumber are never stored on
// the patient: they are read from the bed that references the patient.
type Patient struct {
	Base
	Name             string           `json:"name" db:"name"`
	Age              int              `json:"age" db:"age"`
	Gender           string           `json:"gender" db:"gender"`
	ContactNumber    string           `json:"contactNumber" db:"contact_number"`
	EmergencyContact EmergencyContact `json:"emergencyContact" db:"emergency_contact"`
	BloodType        string           `json:"bloodType" db:"blood_type"`
	Diagnosis        string           `json:"diagnosis" db:"diagnosis"`
	Allergies        pq.StringArray   `json:"allergies" db:"allergies"`
	AttendingDoctor  string           `json:"attendingDoctor" db:"attending_doctor"`
	Status           PatientStatus    `json:"status" db:"status"`
	AdmissionDate    time.Time        `json:"admissionDate" db:"admission_date"`
	DischargeDate    *time.Time       `json:"dischargeDate" db:"discharge_date"`
	Notes            string           `json:"notes" db:"notes"`

	BedNumber  *string `json:"bedNumber" db:"bed_number"`
	RoomNumber *string `json:"roomNumber" db:"room_number"`

	LengthOfStay int `json:"lengthOfStay" db:"-"`
}

// Derive fills the computed attributes.
func (p *Patient) Derive(now time.Time) {
	end := now
	if p.DischargeDate != nil {
		end = *p.DischargeDate
	}
	p.LengthOfStay = DaysBetween(p.AdmissionDate, end)
}

func (p *Patient) IsDischarged() bool {
	return p.Status == PatientStatusDischarged
}

// Summary is the patient view embedded in bed responses.
func (p *Patient) Summary() *PatientSummary {
	return &PatientSummary{
		ID:              p.ID,
		Name:            p.Name,
		Age:             p.Age,
		Gender:          p.Gender,
		Diagnosis:       p.Diagnosis,
		Status:          p.Status,
		AttendingDoctor: p.AttendingDoctor,
		AdmissionDate:   p.AdmissionDate,
	}
}

type PatientSummary struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Age             int           `json:"age"`
	Gender          string        `json:"gender"`
	Diagnosis       string        `json:"diagnosis"`
	Status          PatientStatus `json:"status"`
	AttendingDoctor string        `json:"attendingDoctor"`
	AdmissionDate   time.Time     `json:"admissionDate"`
}

type CreatePatientRequest struct {
	Name             string            `json:"name" binding:"required,min=2,max=100"`
	Age              *int              `json:"age" binding:"required,gte=0,lte=130"`
	Gender           string            `json:"gender" binding:"required,oneof=male female other"`
	ContactNumber    string            `json:"contactNumber" binding:"omitempty,max=20"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
	BloodType        string            `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Diagnosis        string            `json:"diagnosis" binding:"required,max=500"`
	Allergies        []string          `json:"allergies" binding:"omitempty,dive,max=100"`
	AttendingDoctor  string            `json:"attendingDoctor" binding:"omitempty,max=100"`
	Status           PatientStatus     `json:"status" binding:"omitempty,oneof=stable critical improving deteriorating"`
	AdmissionDate    *time.Time        `json:"admissionDate"`
	Notes            string            `json:"notes" binding:"omitempty,max=2000"`
}

type UpdatePatientRequest struct {
	Name             *string           `json:"name" binding:"omitempty,min=2,max=100"`
	Age              *int              `json:"age" binding:"omitempty,gte=0,lte=130"`
	Gender           *string           `json:"gender" binding:"omitempty,oneof=male female other"`
	ContactNumber    *string           `json:"contactNumber" binding:"omitempty,max=20"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
	BloodType        *string           `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Diagnosis        *string           `json:"diagnosis" binding:"omitempty,max=500"`
	Allergies        []string          `json:"allergies" binding:"omitempty,dive,max=100"`
	AttendingDoctor  *string           `json:"attendingDoctor" binding:"omitempty,max=100"`
	Status           *PatientStatus    `json:"status" binding:"omitempty,oneof=stable critical improving deteriorating discharged"`
	AdmissionDate    *time.Time        `json:"admissionDate"`
	Notes            *string           `json:"notes" binding:"omitempty,max=2000"`
}

type DischargePatientRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=2000"`
}

type PatientFilters struct {
	BaseFilter
	Status   PatientStatus `form:"status" binding:"omitempty,oneof=stable critical improving deteriorating discharged active"`
	Assigned *bool         `form:"assigned"`
}

// Matches applies the filters to an already loaded patient.
func (f *PatientFilters) Matches(p *Patient) bool {
	if f == nil {
		return true
	}
	switch f.Status {
	case "":
	case PatientStatusActive:
		if p.IsDischarged() {
			return false
		}
	default:
		if p.Status != f.Status {
			return false
		}
	}
	if f.Assigned != nil && (p.BedNumber != nil) != *f.Assigned {
		return false
	}
	return f.MatchesSearch(p.Name, p.Diagnosis, p.AttendingDoctor, deref(p.BedNumber))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
