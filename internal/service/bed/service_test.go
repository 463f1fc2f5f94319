package bed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/metrics"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *memory.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.WithClock(func() time.Time { return testNow }))
	return &fixture{
		ctx:   context.Background(),
		store: store,
		svc:   NewService(store, metrics.New("test"), WithClock(func() time.Time { return testNow })),
	}
}

func (f *fixture) bed(t *testing.T, number string) *model.BedView {
	t.Helper()
	bed, err := f.svc.CreateBed(f.ctx, &model.CreateBedRequest{
		Number:     number,
		RoomNumber: "101",
		Ward:       "ICU",
	})
	require.NoError(t, err)
	return bed
}

func (f *fixture) patient(t *testing.T, name string) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Name:          name,
		Age:           58,
		Gender:        "male",
		Diagnosis:     "ARDS",
		Allergies:     pq.StringArray{},
		Status:        model.PatientStatusCritical,
		AdmissionDate: testNow.Add(-24 * time.Hour),
	}
	p.Touch(testNow)
	require.NoError(t, f.store.Patients().Create(f.ctx, p))
	return p
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode, msg string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	if msg != "" {
		assert.Equal(t, msg, appErr.Message)
	}
}

func TestCreateBed(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, "ICU-001")

	assert.Equal(t, model.BedStatusAvailable, bed.Status)
	assert.Equal(t, model.BedTypeStandard, bed.Type)
	assert.NotNil(t, bed.Equipment)
	assert.Nil(t, bed.PatientID)

	_, err := f.svc.CreateBed(f.ctx, &model.CreateBedRequest{Number: "ICU-001", RoomNumber: "102", Ward: "ICU"})
	assertCode(t, err, apperrors.ErrConflict, MsgBedNumberExists)
}

func TestGetBed_ByIDOrNumber(t *testing.T) {
	f := newFixture(t)
	created := f.bed(t, "ICU-001")

	byNumber, err := f.svc.GetBed(f.ctx, "ICU-001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	byID, err := f.svc.GetBed(f.ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "ICU-001", byID.Number)

	_, err = f.svc.GetBed(f.ctx, "ICU-404")
	assertCode(t, err, apperrors.ErrNotFound, "Bed not found")
}

func TestAssignAndDischarge_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	p := f.patient(t, "John Doe")

	view, err := f.svc.AssignPatient(f.ctx, "ICU-001", p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusOccupied, view.Status)
	require.NotNil(t, view.PatientID)
	assert.Equal(t, p.ID, *view.PatientID)
	require.NotNil(t, view.Patient)
	assert.Equal(t, "John Doe", view.Patient.Name)

	got, err := f.store.Patients().Get(f.ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BedNumber)
	assert.Equal(t, "ICU-001", *got.BedNumber)
	assert.Equal(t, "101", *got.RoomNumber)

	view, err = f.svc.DischargePatient(f.ctx, "ICU-001")
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusCleaning, view.Status)
	assert.Nil(t, view.PatientID)

	got, err = f.store.Patients().Get(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BedNumber)
	assert.Nil(t, got.RoomNumber)

	view, err = f.svc.UpdateStatus(f.ctx, "ICU-001", &model.UpdateBedStatusRequest{Status: model.BedStatusAvailable})
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusAvailable, view.Status)
	require.NotNil(t, view.LastCleanedAt)
	assert.Equal(t, testNow, *view.LastCleanedAt)

	// the same patient can take the bed again
	_, err = f.svc.AssignPatient(f.ctx, "ICU-001", p.ID)
	require.NoError(t, err)
}

func TestAssignPatient_Preconditions(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	f.bed(t, "ICU-002")
	f.bed(t, "ICU-003")
	first := f.patient(t, "First")
	second := f.patient(t, "Second")

	_, err := f.svc.AssignPatient(f.ctx, "ICU-001", first.ID)
	require.NoError(t, err)

	t.Run("occupied bed", func(t *testing.T) {
		_, err := f.svc.AssignPatient(f.ctx, "ICU-001", second.ID)
		assertCode(t, err, apperrors.ErrPrecondition, MsgBedNotAvailable)
	})

	t.Run("patient already placed", func(t *testing.T) {
		_, err := f.svc.AssignPatient(f.ctx, "ICU-002", first.ID)
		assertCode(t, err, apperrors.ErrPrecondition, MsgPatientHasBed)

		bed, err := f.svc.GetBed(f.ctx, "ICU-002")
		require.NoError(t, err)
		assert.Equal(t, model.BedStatusAvailable, bed.Status)
		assert.Nil(t, bed.PatientID)
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := f.svc.AssignPatient(f.ctx, "ICU-002", uuid.New())
		assertCode(t, err, apperrors.ErrNotFound, "Patient not found")
	})

	t.Run("unknown bed", func(t *testing.T) {
		_, err := f.svc.AssignPatient(f.ctx, "ICU-999", second.ID)
		assertCode(t, err, apperrors.ErrNotFound, "Bed not found")
	})

	t.Run("bed in maintenance", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.ctx, "ICU-003", &model.UpdateBedStatusRequest{Status: model.BedStatusMaintenance})
		require.NoError(t, err)
		_, err = f.svc.AssignPatient(f.ctx, "ICU-003", second.ID)
		assertCode(t, err, apperrors.ErrPrecondition, MsgBedNotAvailable)
	})

	t.Run("available bed still linked to a patient", func(t *testing.T) {
		stale := f.bed(t, "ICU-004")
		other := f.patient(t, "Other")
		raw, err := f.store.Beds().Get(f.ctx, stale.ID)
		require.NoError(t, err)
		raw.PatientID = &other.ID
		require.NoError(t, f.store.Beds().Update(f.ctx, raw))

		_, err = f.svc.AssignPatient(f.ctx, "ICU-004", second.ID)
		assertCode(t, err, apperrors.ErrPrecondition, MsgBedTaken)
	})

	t.Run("discharged patient", func(t *testing.T) {
		gone := f.patient(t, "Gone")
		gone.Status = model.PatientStatusDischarged
		require.NoError(t, f.store.Patients().Update(f.ctx, gone))
		_, err := f.svc.AssignPatient(f.ctx, "ICU-002", gone.ID)
		assertCode(t, err, apperrors.ErrPrecondition, MsgPatientDischarged)
	})
}

func TestDischargePatient_EmptyBed(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")

	_, err := f.svc.DischargePatient(f.ctx, "ICU-001")
	assertCode(t, err, apperrors.ErrPrecondition, MsgNoPatientAssigned)

	bed, err := f.svc.GetBed(f.ctx, "ICU-001")
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusAvailable, bed.Status)
}

// Many patients race for one bed: exactly one wins and the bed ends up with
// exactly that patient.
func TestAssignPatient_ConcurrentSingleBed(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")

	const n = 20
	patients := make([]*model.Patient, n)
	for i := range patients {
		patients[i] = f.patient(t, "Racer")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
	)
	for _, p := range patients {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := f.svc.AssignPatient(f.ctx, "ICU-001", id); err == nil {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			} else {
				assert.True(t, apperrors.Is(err, apperrors.ErrPrecondition), err)
			}
		}(p.ID)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	bed, err := f.svc.GetBed(f.ctx, "ICU-001")
	require.NoError(t, err)
	require.NotNil(t, bed.PatientID)
	assert.Equal(t, winners[0], *bed.PatientID)
	assert.Equal(t, model.BedStatusOccupied, bed.Status)
}

// One patient races for many beds: exactly one bed is taken.
func TestAssignPatient_ConcurrentSinglePatient(t *testing.T) {
	f := newFixture(t)
	numbers := []string{"ICU-001", "ICU-002", "ICU-003", "ICU-004", "ICU-005"}
	for _, n := range numbers {
		f.bed(t, n)
	}
	p := f.patient(t, "Contested")

	var wg sync.WaitGroup
	for _, n := range numbers {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			_, _ = f.svc.AssignPatient(f.ctx, ref, p.ID)
		}(n)
	}
	wg.Wait()

	occupied, err := f.svc.ListBeds(f.ctx, &model.BedFilters{Status: model.BedStatusOccupied})
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, p.ID, *occupied[0].PatientID)
}

func TestUpdateStatus_StateMachine(t *testing.T) {
	tests := []struct {
		from, to model.BedStatus
		ok       bool
	}{
		{model.BedStatusCleaning, model.BedStatusAvailable, true},
		{model.BedStatusAvailable, model.BedStatusMaintenance, true},
		{model.BedStatusMaintenance, model.BedStatusAvailable, true},
		{model.BedStatusAvailable, model.BedStatusAvailable, false},
		{model.BedStatusAvailable, model.BedStatusOccupied, false},
		{model.BedStatusAvailable, model.BedStatusCleaning, false},
		{model.BedStatusOccupied, model.BedStatusAvailable, false},
		{model.BedStatusOccupied, model.BedStatusMaintenance, false},
		{model.BedStatusCleaning, model.BedStatusMaintenance, false},
		{model.BedStatusMaintenance, model.BedStatusCleaning, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assertCode(t, err, apperrors.ErrPrecondition, "")
			}
		})
	}
}

func TestUpdateStatus_OccupiedBedUnchanged(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	p := f.patient(t, "Holder")
	_, err := f.svc.AssignPatient(f.ctx, "ICU-001", p.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(f.ctx, "ICU-001", &model.UpdateBedStatusRequest{Status: model.BedStatusAvailable})
	assertCode(t, err, apperrors.ErrPrecondition, "")

	bed, err := f.svc.GetBed(f.ctx, "ICU-001")
	require.NoError(t, err)
	assert.Equal(t, model.BedStatusOccupied, bed.Status)
	assert.Equal(t, p.ID, *bed.PatientID)
}

func TestDeleteBed(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	f.bed(t, "ICU-002")
	p := f.patient(t, "Holder")
	_, err := f.svc.AssignPatient(f.ctx, "ICU-001", p.ID)
	require.NoError(t, err)

	err = f.svc.DeleteBed(f.ctx, "ICU-001")
	assertCode(t, err, apperrors.ErrPrecondition, MsgBedOccupied)
	_, err = f.svc.GetBed(f.ctx, "ICU-001")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBed(f.ctx, "ICU-002"))
	_, err = f.svc.GetBed(f.ctx, "ICU-002")
	assertCode(t, err, apperrors.ErrNotFound, "")
}

func TestUpdateBed_KeepsStatusAndOccupant(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	f.bed(t, "ICU-002")
	p := f.patient(t, "Holder")
	_, err := f.svc.AssignPatient(f.ctx, "ICU-001", p.ID)
	require.NoError(t, err)

	ward := "CCU"
	view, err := f.svc.UpdateBed(f.ctx, "ICU-001", &model.UpdateBedRequest{Ward: &ward})
	require.NoError(t, err)
	assert.Equal(t, "CCU", view.Ward)
	assert.Equal(t, model.BedStatusOccupied, view.Status)
	require.NotNil(t, view.Patient)
	assert.Equal(t, p.ID, view.Patient.ID)

	taken := "ICU-002"
	_, err = f.svc.UpdateBed(f.ctx, "ICU-001", &model.UpdateBedRequest{Number: &taken})
	assertCode(t, err, apperrors.ErrConflict, MsgBedNumberExists)
}

func TestAssignNurse(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")

	nurse := &model.Staff{EmployeeID: "N-1", Name: "Nora", Email: "nora@icu.local", Role: model.StaffRoleNurse, Status: model.StaffStatusOnDuty}
	nurse.Touch(testNow)
	require.NoError(t, f.store.Staff().Create(f.ctx, nurse))
	doctor := &model.Staff{EmployeeID: "D-1", Name: "Dan", Email: "dan@icu.local", Role: model.StaffRoleDoctor, Status: model.StaffStatusOnDuty}
	doctor.Touch(testNow)
	require.NoError(t, f.store.Staff().Create(f.ctx, doctor))

	view, err := f.svc.AssignNurse(f.ctx, "ICU-001", &nurse.ID)
	require.NoError(t, err)
	require.NotNil(t, view.AssignedNurse)
	assert.Equal(t, nurse.ID, *view.AssignedNurse)

	_, err = f.svc.AssignNurse(f.ctx, "ICU-001", &doctor.ID)
	assertCode(t, err, apperrors.ErrPrecondition, MsgStaffNotNurse)

	view, err = f.svc.AssignNurse(f.ctx, "ICU-001", nil)
	require.NoError(t, err)
	assert.Nil(t, view.AssignedNurse)
}

func TestListBeds_EmbedsPatients(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-002")
	f.bed(t, "ICU-001")
	p := f.patient(t, "Embedded")
	_, err := f.svc.AssignPatient(f.ctx, "ICU-002", p.ID)
	require.NoError(t, err)

	beds, err := f.svc.ListBeds(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, beds, 2)
	assert.Equal(t, "ICU-001", beds[0].Number)
	assert.Nil(t, beds[0].Patient)
	require.NotNil(t, beds[1].Patient)
	assert.Equal(t, "Embedded", beds[1].Patient.Name)
}

func TestUnavailableStore(t *testing.T) {
	f := newFixture(t)
	f.bed(t, "ICU-001")
	require.NoError(t, f.store.Close())

	_, err := f.svc.GetBed(f.ctx, "ICU-001")
	assertCode(t, err, apperrors.ErrUnavailable, apperrors.UnavailableMessage)
	_, err = f.svc.AssignPatient(f.ctx, "ICU-001", uuid.New())
	assertCode(t, err, apperrors.ErrUnavailable, "")
}
