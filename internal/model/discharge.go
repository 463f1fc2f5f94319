package model

import (
	"time"

	"github.com/google/uuid"
)

// DischargeRecord is the history row written when a patient leaves the ICU.
type DischargeRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	PatientID     uuid.UUID `json:"patientId" db:"patient_id"`
	PatientName   string    `json:"patientName" db:"patient_name"`
	Diagnosis     string    `json:"diagnosis" db:"diagnosis"`
	BedNumber     *string   `json:"bedNumber" db:"bed_number"`
	RoomNumber    *string   `json:"roomNumber" db:"room_number"`
	AdmissionDate time.Time `json:"admissionDate" db:"admission_date"`
	DischargeDate time.Time `json:"dischargeDate" db:"discharge_date"`
	LengthOfStay  int       `json:"lengthOfStay" db:"length_of_stay"`
	Notes         string    `json:"notes" db:"notes"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

type DischargeFilters struct {
	BaseFilter
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// Range returns the [from, to) window of the filters; a zero bound is open.
func (f *DischargeFilters) Range() (from, to time.Time) {
	if f == nil {
		return
	}
	if d, err := ParseDate(f.From); err == nil {
		from = d.Time
	}
	if d, err := ParseDate(f.To); err == nil {
		to = d.AddDate(0, 0, 1)
	}
	return
}

func (f *DischargeFilters) Matches(r *DischargeRecord) bool {
	if f == nil {
		return true
	}
	from, to := f.Range()
	if !from.IsZero() && r.DischargeDate.Before(from) {
		return false
	}
	if !to.IsZero() && !r.DischargeDate.Before(to) {
		return false
	}
	return f.MatchesSearch(r.PatientName, r.Diagnosis, deref(r.BedNumber))
}
