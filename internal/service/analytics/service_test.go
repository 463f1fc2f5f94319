package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.AddDate(0, 0, -d)
}

func snapshot() Snapshot {
	discharged := daysAgo(5)
	overdue := now.Add(-time.Hour)
	return Snapshot{
		Patients: []*model.Patient{
			{Status: model.PatientStatusCritical, AdmissionDate: daysAgo(2)},
			{Status: model.PatientStatusStable, AdmissionDate: daysAgo(10)},
			{Status: model.PatientStatusDischarged, AdmissionDate: daysAgo(20), DischargeDate: &discharged},
		},
		Beds: []*model.Bed{
			{Ward: "ICU", Status: model.BedStatusOccupied},
			{Ward: "ICU", Status: model.BedStatusAvailable},
			{Ward: "CCU", Status: model.BedStatusCleaning},
		},
		Staff: []*model.Staff{
			{Role: model.StaffRoleNurse, Status: model.StaffStatusOnDuty},
			{Role: model.StaffRoleNurse, Status: model.StaffStatusOffDuty},
			{Role: model.StaffRoleDoctor, Status: model.StaffStatusOnDuty},
		},
		Equipment: []*model.Equipment{
			{Status: model.EquipmentStatusInUse},
			{Status: model.EquipmentStatusAvailable, NextMaintenance: &overdue},
			{Status: model.EquipmentStatusMaintenance},
		},
	}
}

func TestCompute(t *testing.T) {
	a := Compute(snapshot(), now)

	assert.Equal(t, now, a.GeneratedAt)

	assert.Equal(t, 3, a.Patients.Total)
	assert.Equal(t, 2, a.Patients.Active)
	assert.Equal(t, map[string]int{"critical": 1, "stable": 1, "discharged": 1}, a.Patients.ByStatus)
	assert.Equal(t, 50.0, a.Patients.CriticalPercentage)
	assert.Equal(t, 9.0, a.Patients.AverageLengthOfStay)
	assert.Equal(t, 1, a.Patients.AdmissionsLast7Days)
	assert.Equal(t, 1, a.Patients.DischargesLast30Days)

	assert.Equal(t, 3, a.Beds.Total)
	assert.Equal(t, map[string]int{"ICU": 2, "CCU": 1}, a.Beds.ByWard)
	assert.Equal(t, 33.3, a.Beds.OccupancyRate)

	assert.Equal(t, 3, a.Staff.Total)
	assert.Equal(t, 2, a.Staff.OnDuty)
	assert.Equal(t, map[string]int{"nurse": 2, "doctor": 1}, a.Staff.ByRole)
	assert.Equal(t, 0.5, a.Staff.NurseToPatientRatio)

	assert.Equal(t, 3, a.Equipment.Total)
	assert.Equal(t, 33.3, a.Equipment.UtilizationRate)
	assert.Equal(t, 1, a.Equipment.MaintenanceDue)
}

func TestCompute_Deterministic(t *testing.T) {
	assert.Equal(t, Compute(snapshot(), now), Compute(snapshot(), now))
}

func TestCompute_Empty(t *testing.T) {
	a := Compute(Snapshot{}, now)

	assert.Zero(t, a.Patients.Total)
	assert.Zero(t, a.Patients.CriticalPercentage)
	assert.Zero(t, a.Patients.AverageLengthOfStay)
	assert.Zero(t, a.Beds.OccupancyRate)
	assert.Zero(t, a.Staff.NurseToPatientRatio)
	assert.Zero(t, a.Equipment.UtilizationRate)
	assert.NotNil(t, a.Patients.ByStatus)
	assert.NotNil(t, a.Beds.ByWard)
	assert.NotNil(t, a.Staff.ByRole)
	assert.NotNil(t, a.Equipment.ByStatus)
}

func TestGetAnalytics(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	p := &model.Patient{Name: "A", Status: model.PatientStatusCritical, AdmissionDate: daysAgo(1)}
	p.Touch(now)
	require.NoError(t, store.Patients().Create(ctx, p))
	b := &model.Bed{Number: "ICU-001", Ward: "ICU", Status: model.BedStatusOccupied, PatientID: &p.ID}
	b.Touch(now)
	require.NoError(t, store.Beds().Create(ctx, b))

	svc := NewService(store, WithClock(func() time.Time { return now }))
	a, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Patients.Active)
	assert.Equal(t, 100.0, a.Patients.CriticalPercentage)
	assert.Equal(t, 100.0, a.Beds.OccupancyRate)

	require.NoError(t, store.Close())
	_, err = svc.GetAnalytics(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
}
