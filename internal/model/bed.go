package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type BedStatus string

const (
	BedStatusAvailable   BedStatus = "available"
	BedStatusOccupied    BedStatus = "occupied"
	BedStatusCleaning    BedStatus = "cleaning"
	BedStatusMaintenance BedStatus = "maintenance"
)

type BedType string

const (
	BedTypeStandard  BedType = "standard"
	BedTypeIsolation BedType = "isolation"
	BedTypeCardiac   BedType = "cardiac"
	BedTypePediatric BedType = "pediatric"
	BedTypeBariatric BedType = "bariatric"
)

type BedFeatures struct {
	Ventilator bool `json:"ventilator"`
	Monitor    bool `json:"monitor"`
	Oxygen     bool `json:"oxygen"`
	Suction    bool `json:"suction"`
}

func (f BedFeatures) Value() (driver.Value, error) {
	return valueJSON(f)
}

func (f *BedFeatures) Scan(src interface{}) error {
	return scanJSON(src, f)
}

// Bed is a physical ICU bed. PatientID is the single owning link between a
// bed and its occupant; it is set if and only if the bed is occupied.
type Bed struct {
	Base
	Number            string         `json:"number" db:"bed_number"`
	RoomNumber        string         `json:"roomNumber" db:"room_number"`
	Floor             int            `json:"floor" db:"floor"`
	Ward              string         `json:"ward" db:"ward"`
	Type              BedType        `json:"type" db:"bed_type"`
	Status            BedStatus      `json:"status" db:"status"`
	PatientID         *uuid.UUID     `json:"patientId" db:"patient_id"`
	AssignedNurse     *uuid.UUID     `json:"assignedNurse" db:"assigned_nurse"`
	Equipment         pq.StringArray `json:"equipment" db:"equipment"`
	Features          BedFeatures    `json:"features" db:"features"`
	Notes             string         `json:"notes" db:"notes"`
	LastCleanedAt     *time.Time     `json:"lastCleanedAt" db:"last_cleaned_at"`
	LastMaintenanceAt *time.Time     `json:"lastMaintenanceAt" db:"last_maintenance_at"`
}

// IsAssignable reports whether a patient can be placed in the bed.
func (b *Bed) IsAssignable() bool {
	return b.Status == BedStatusAvailable && b.PatientID == nil
}

// BedView is a bed with its occupant merged in.
type BedView struct {
	*Bed
	Patient *PatientSummary `json:"patient"`
}

type CreateBedRequest struct {
	Number        string      `json:"number" binding:"required,bedno"`
	RoomNumber    string      `json:"roomNumber" binding:"required,max=20"`
	Floor         int         `json:"floor" binding:"gte=0,lte=200"`
	Ward          string      `json:"ward" binding:"required,max=50"`
	Type          BedType     `json:"type" binding:"omitempty,oneof=standard isolation cardiac pediatric bariatric"`
	AssignedNurse *uuid.UUID  `json:"assignedNurse"`
	Equipment     []string    `json:"equipment" binding:"omitempty,dive,max=50"`
	Features      BedFeatures `json:"features"`
	Notes         string      `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateBedRequest never carries a status: status moves only through the
// assign, discharge and status endpoints.
type UpdateBedRequest struct {
	Number     *string      `json:"number" binding:"omitempty,bedno"`
	RoomNumber *string      `json:"roomNumber" binding:"omitempty,max=20"`
	Floor      *int         `json:"floor" binding:"omitempty,gte=0,lte=200"`
	Ward       *string      `json:"ward" binding:"omitempty,max=50"`
	Type       *BedType     `json:"type" binding:"omitempty,oneof=standard isolation cardiac pediatric bariatric"`
	Equipment  []string     `json:"equipment" binding:"omitempty,dive,max=50"`
	Features   *BedFeatures `json:"features"`
	Notes      *string      `json:"notes" binding:"omitempty,max=1000"`
}

type AssignBedRequest struct {
	PatientID string `json:"patientId" binding:"required,uuid"`
}

type UpdateBedStatusRequest struct {
	Status BedStatus `json:"status" binding:"required,oneof=available occupied cleaning maintenance"`
	Notes  *string   `json:"notes" binding:"omitempty,max=1000"`
}

type AssignNurseRequest struct {
	StaffID *string `json:"staffId" binding:"omitempty,uuid"`
}

type BedFilters struct {
	BaseFilter
	Status BedStatus `form:"status" binding:"omitempty,oneof=available occupied cleaning maintenance"`
	Ward   string    `form:"ward"`
	Type   BedType   `form:"type" binding:"omitempty,oneof=standard isolation cardiac pediatric bariatric"`
	Floor  *int      `form:"floor"`
}

func (f *BedFilters) Matches(b *Bed) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Ward != "" && b.Ward != f.Ward {
		return false
	}
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if f.Floor != nil && b.Floor != *f.Floor {
		return false
	}
	return f.MatchesSearch(b.Number, b.RoomNumber, b.Ward, b.Notes)
}
