package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/metrics"
)

const (
	MsgAlreadyDischarged = "Patient is already discharged"
	MsgUseDischarge      = "Use the discharge action to discharge a patient"
	MsgHoldsBed          = "Patient is assigned to a bed; discharge first"
	MsgBedChanged        = "Patient's bed assignment changed during discharge, retry"

	dischargeAttempts = 3
)

var errBedChanged = errors.New("bed assignment changed")

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	DischargePatient(ctx context.Context, id uuid.UUID, req *model.DischargePatientRequest) (*model.DischargeRecord, error)
}

type Service struct {
	store   repository.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store repository.Store, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	now := s.now()
	patient := &model.Patient{
		Name:            req.Name,
		Age:             *req.Age,
		Gender:          req.Gender,
		ContactNumber:   req.ContactNumber,
		BloodType:       req.BloodType,
		Diagnosis:       req.Diagnosis,
		Allergies:       pq.StringArray(req.Allergies),
		AttendingDoctor: req.AttendingDoctor,
		Status:          req.Status,
		AdmissionDate:   now,
		Notes:           req.Notes,
	}
	if req.EmergencyContact != nil {
		patient.EmergencyContact = *req.EmergencyContact
	}
	if patient.Status == "" {
		patient.Status = model.PatientStatusStable
	}
	if req.AdmissionDate != nil {
		if err := checkAdmissionDate(*req.AdmissionDate, nil, now); err != nil {
			return nil, err
		}
		patient.AdmissionDate = *req.AdmissionDate
	}

	patient.Touch(now)
	if err := s.store.Patients().Create(ctx, patient); err != nil {
		return nil, service.StoreError("Patient", err)
	}

	log.Info().Str("patient_id", patient.ID.String()).Msg("Patient admitted")
	return s.finish(patient), nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Patient", err)
	}
	return s.finish(patient), nil
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	patients, err := s.store.Patients().List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("Patient", err)
	}
	for _, p := range patients {
		s.finish(p)
	}
	return patients, nil
}

// UpdatePatient edits clinical and contact data. It cannot discharge and never
// touches the bed link.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if req.Status != nil && *req.Status == model.PatientStatusDischarged {
		return nil, apperrors.NewPrecondition(MsgUseDischarge)
	}

	var result *model.Patient
	err := service.WithTx(ctx, s.store, "Patient", func(tx repository.Repositories) error {
		patient, err := tx.Patients().GetForUpdate(ctx, id)
		if err != nil {
			return service.StoreError("Patient", err)
		}
		if req.Status != nil && patient.IsDischarged() {
			return apperrors.NewPrecondition(MsgAlreadyDischarged)
		}

		if req.Name != nil {
			patient.Name = *req.Name
		}
		if req.Age != nil {
			patient.Age = *req.Age
		}
		if req.Gender != nil {
			patient.Gender = *req.Gender
		}
		if req.ContactNumber != nil {
			patient.ContactNumber = *req.ContactNumber
		}
		if req.EmergencyContact != nil {
			patient.EmergencyContact = *req.EmergencyContact
		}
		if req.BloodType != nil {
			patient.BloodType = *req.BloodType
		}
		if req.Diagnosis != nil {
			patient.Diagnosis = *req.Diagnosis
		}
		if req.Allergies != nil {
			patient.Allergies = pq.StringArray(req.Allergies)
		}
		if req.AttendingDoctor != nil {
			patient.AttendingDoctor = *req.AttendingDoctor
		}
		if req.Status != nil {
			patient.Status = *req.Status
		}
		if req.AdmissionDate != nil {
			if err := checkAdmissionDate(*req.AdmissionDate, patient.DischargeDate, s.now()); err != nil {
				return err
			}
			patient.AdmissionDate = *req.AdmissionDate
		}
		if req.Notes != nil {
			patient.Notes = *req.Notes
		}

		patient.Touch(s.now())
		if err := tx.Patients().Update(ctx, patient); err != nil {
			return service.StoreError("Patient", err)
		}
		result = patient
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.finish(result), nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	err := service.WithTx(ctx, s.store, "Patient", func(tx repository.Repositories) error {
		if _, err := tx.Patients().GetForUpdate(ctx, id); err != nil {
			return service.StoreError("Patient", err)
		}
		if _, err := tx.Beds().GetByPatient(ctx, id); err == nil {
			return apperrors.NewPrecondition(MsgHoldsBed)
		} else if !service.IsNotFound(err) {
			return service.StoreError("Bed", err)
		}
		return service.StoreError("Patient", tx.Patients().Delete(ctx, id))
	})
	if err != nil {
		return err
	}
	log.Info().Str("patient_id", id.String()).Msg("Patient deleted")
	return nil
}

// DischargePatient releases the patient from the ICU: the bed they hold goes
// to cleaning, the patient is marked discharged and a history record is
// written, all in one transaction. Rows are locked bed first, as in bed
// assignment. If the patient's bed changes between the bed lookup and the
// patient lock, the transaction is rolled back and run again.
func (s *Service) DischargePatient(ctx context.Context, id uuid.UUID, req *model.DischargePatientRequest) (*model.DischargeRecord, error) {
	var (
		record *model.DischargeRecord
		freed  bool
		err    error
	)
	for attempt := 0; attempt < dischargeAttempts; attempt++ {
		record, freed, err = s.discharge(ctx, id, req)
		if !errors.Is(err, errBedChanged) {
			break
		}
		log.Warn().Str("patient_id", id.String()).Int("attempt", attempt+1).Msg("Bed assignment changed during discharge, retrying")
	}
	if errors.Is(err, errBedChanged) {
		return nil, apperrors.NewPrecondition(MsgBedChanged)
	}
	if err != nil {
		return nil, err
	}

	if freed {
		s.metrics.ObserveBedTransition(string(model.BedStatusOccupied), string(model.BedStatusCleaning))
	}
	log.Info().
		Str("patient_id", id.String()).
		Int("length_of_stay", record.LengthOfStay).
		Bool("bed_released", freed).
		Msg("Patient discharged from ICU")
	return record, nil
}

func (s *Service) discharge(ctx context.Context, id uuid.UUID, req *model.DischargePatientRequest) (*model.DischargeRecord, bool, error) {
	var (
		record *model.DischargeRecord
		freed  bool
	)
	err := service.WithTx(ctx, s.store, "Patient", func(tx repository.Repositories) error {
		var bed *model.Bed
		held, err := tx.Beds().GetByPatient(ctx, id)
		switch {
		case err == nil:
			bed, err = tx.Beds().GetForUpdate(ctx, held.ID)
			if err != nil {
				return service.StoreError("Bed", err)
			}
			if bed.PatientID == nil || *bed.PatientID != id {
				bed = nil
			}
		case !service.IsNotFound(err):
			return service.StoreError("Bed", err)
		}

		patient, err := tx.Patients().GetForUpdate(ctx, id)
		if err != nil {
			return service.StoreError("Patient", err)
		}
		if patient.IsDischarged() {
			return apperrors.NewPrecondition(MsgAlreadyDischarged)
		}

		// an assignment may have committed before the patient lock was taken
		current, err := tx.Beds().GetByPatient(ctx, id)
		switch {
		case err == nil:
			if bed == nil || current.ID != bed.ID {
				return errBedChanged
			}
		case !service.IsNotFound(err):
			return service.StoreError("Bed", err)
		}

		now := s.now()
		record = &model.DischargeRecord{
			ID:            uuid.New(),
			PatientID:     patient.ID,
			PatientName:   patient.Name,
			Diagnosis:     patient.Diagnosis,
			AdmissionDate: patient.AdmissionDate,
			DischargeDate: now,
			LengthOfStay:  model.DaysBetween(patient.AdmissionDate, now),
			CreatedAt:     now,
		}
		if req != nil {
			record.Notes = req.Notes
		}

		if bed != nil {
			record.BedNumber = model.StringPtr(bed.Number)
			record.RoomNumber = model.StringPtr(bed.RoomNumber)
			bed.PatientID = nil
			bed.Status = model.BedStatusCleaning
			bed.Touch(now)
			if err := tx.Beds().Update(ctx, bed); err != nil {
				return service.StoreError("Bed", err)
			}
			freed = true
		}

		patient.Status = model.PatientStatusDischarged
		patient.DischargeDate = &now
		patient.Touch(now)
		if err := tx.Patients().Update(ctx, patient); err != nil {
			return service.StoreError("Patient", err)
		}

		return service.StoreError("Discharge record", tx.Discharges().Create(ctx, record))
	})
	if err != nil {
		return nil, false, err
	}
	return record, freed, nil
}

// checkAdmissionDate rejects admissions in the future or after the discharge.
func checkAdmissionDate(admitted time.Time, discharged *time.Time, now time.Time) error {
	if admitted.After(now) {
		return apperrors.NewValidation("Validation failed", map[string]string{
			"admissionDate": "admissionDate cannot be in the future",
		})
	}
	if discharged != nil && admitted.After(*discharged) {
		return apperrors.NewValidation("Validation failed", map[string]string{
			"admissionDate": "admissionDate cannot be after dischargeDate",
		})
	}
	return nil
}

func (s *Service) finish(p *model.Patient) *model.Patient {
	if p.Allergies == nil {
		p.Allergies = pq.StringArray{}
	}
	p.Derive(s.now())
	return p
}

var _ PatientService = (*Service)(nil)
