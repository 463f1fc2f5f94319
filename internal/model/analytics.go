package model

import (
	"time"
)

// Analytics is the dashboard rollup. Percentages are rounded to one decimal.
type Analytics struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Patients    PatientAnalytics   `json:"patients"`
	Beds        BedAnalytics       `json:"beds"`
	Staff       StaffAnalytics     `json:"staff"`
	Equipment   EquipmentAnalytics `json:"equipment"`
}

type PatientAnalytics struct {
	Total                int            `json:"total"`
	Active               int            `json:"active"`
	ByStatus             map[string]int `json:"byStatus"`
	CriticalPercentage   float64        `json:"criticalPercentage"`
	AverageLengthOfStay  float64        `json:"averageLengthOfStay"`
	AdmissionsLast7Days  int            `json:"admissionsLast7Days"`
	DischargesLast30Days int            `json:"dischargesLast30Days"`
}

type BedAnalytics struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	ByWard        map[string]int `json:"byWard"`
	OccupancyRate float64        `json:"occupancyRate"`
}

type StaffAnalytics struct {
	Total               int            `json:"total"`
	ByRole              map[string]int `json:"byRole"`
	ByStatus            map[string]int `json:"byStatus"`
	OnDuty              int            `json:"onDuty"`
	NurseToPatientRatio float64        `json:"nurseToPatientRatio"`
}

type EquipmentAnalytics struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"byStatus"`
	UtilizationRate float64        `json:"utilizationRate"`
	MaintenanceDue  int            `json:"maintenanceDue"`
}
