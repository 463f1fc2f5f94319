package model

import (
	"time"
)

type EquipmentType string

const (
	EquipmentTypeVentilator    EquipmentType = "ventilator"
	EquipmentTypeMonitor       EquipmentType = "monitor"
	EquipmentTypeInfusionPump  EquipmentType = "infusion-pump"
	EquipmentTypeDefibrillator EquipmentType = "defibrillator"
	EquipmentTypeDialysis      EquipmentType = "dialysis"
	EquipmentTypeOther         EquipmentType = "other"
)

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "available"
	EquipmentStatusInUse       EquipmentStatus = "in-use"
	EquipmentStatusMaintenance EquipmentStatus = "maintenance"
	EquipmentStatusOutOfOrder  EquipmentStatus = "out-of-order"
)

type Equipment struct {
	Base
	EquipmentID     string          `json:"equipmentId" db:"equipment_id"`
	Name            string          `json:"name" db:"name"`
	Type            EquipmentType   `json:"type" db:"equipment_type"`
	Status          EquipmentStatus `json:"status" db:"status"`
	Location        string          `json:"location" db:"location"`
	Manufacturer    string          `json:"manufacturer" db:"manufacturer"`
	Model           string          `json:"model" db:"model"`
	SerialNumber    string          `json:"serialNumber" db:"serial_number"`
	LastMaintenance *time.Time      `json:"lastMaintenance" db:"last_maintenance"`
	NextMaintenance *time.Time      `json:"nextMaintenance" db:"next_maintenance"`
	Notes           string          `json:"notes" db:"notes"`

	MaintenanceDue bool `json:"maintenanceDue" db:"-"`
}

func (e *Equipment) Derive(now time.Time) {
	e.MaintenanceDue = e.NextMaintenance != nil && !e.NextMaintenance.After(now)
}

type CreateEquipmentRequest struct {
	EquipmentID     string          `json:"equipmentId" binding:"required,max=30"`
	Name            string          `json:"name" binding:"required,max=100"`
	Type            EquipmentType   `json:"type" binding:"required,oneof=ventilator monitor infusion-pump defibrillator dialysis other"`
	Status          EquipmentStatus `json:"status" binding:"omitempty,oneof=available in-use maintenance out-of-order"`
	Location        string          `json:"location" binding:"omitempty,max=100"`
	Manufacturer    string          `json:"manufacturer" binding:"omitempty,max=100"`
	Model           string          `json:"model" binding:"omitempty,max=100"`
	SerialNumber    string          `json:"serialNumber" binding:"omitempty,max=100"`
	LastMaintenance *time.Time      `json:"lastMaintenance"`
	NextMaintenance *time.Time      `json:"nextMaintenance"`
	Notes           string          `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateEquipmentRequest struct {
	EquipmentID     *string        `json:"equipmentId" binding:"omitempty,max=30"`
	Name            *string        `json:"name" binding:"omitempty,max=100"`
	Type            *EquipmentType `json:"type" binding:"omitempty,oneof=ventilator monitor infusion-pump defibrillator dialysis other"`
	Location        *string        `json:"location" binding:"omitempty,max=100"`
	Manufacturer    *string        `json:"manufacturer" binding:"omitempty,max=100"`
	Model           *string        `json:"model" binding:"omitempty,max=100"`
	SerialNumber    *string        `json:"serialNumber" binding:"omitempty,max=100"`
	LastMaintenance *time.Time     `json:"lastMaintenance"`
	NextMaintenance *time.Time     `json:"nextMaintenance"`
	Notes           *string        `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateEquipmentStatusRequest struct {
	Status EquipmentStatus `json:"status" binding:"required,oneof=available in-use maintenance out-of-order"`
	Notes  *string         `json:"notes" binding:"omitempty,max=1000"`
}

type EquipmentFilters struct {
	BaseFilter
	Type           EquipmentType   `form:"type" binding:"omitempty,oneof=ventilator monitor infusion-pump defibrillator dialysis other"`
	Status         EquipmentStatus `form:"status" binding:"omitempty,oneof=available in-use maintenance out-of-order"`
	Location       string          `form:"location"`
	MaintenanceDue *bool           `form:"maintenanceDue"`
}

// Matches expects e to be derived already.
func (f *EquipmentFilters) Matches(e *Equipment) bool {
	if f == nil {
		return true
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Location != "" && e.Location != f.Location {
		return false
	}
	if f.MaintenanceDue != nil && e.MaintenanceDue != *f.MaintenanceDue {
		return false
	}
	return f.MatchesSearch(e.EquipmentID, e.Name, e.Manufacturer, e.Model, e.SerialNumber)
}
