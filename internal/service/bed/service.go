package bed

import (
	"context"
	"errors"
	"fmt"
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
	MsgBedNotAvailable   = "Bed is not available for assignment"
	MsgBedTaken          = "Another patient is already assigned to this bed"
	MsgPatientHasBed     = "Patient is already assigned to another bed"
	MsgPatientDischarged = "Patient has been discharged"
	MsgNoPatientAssigned = "No patient assigned to this bed"
	MsgBedOccupied       = "Cannot delete an occupied bed"
	MsgBedNumberExists   = "Bed number already exists"
	MsgStaffNotNurse     = "Staff member is not a nurse"
)

type BedService interface {
	CreateBed(ctx context.Context, req *model.CreateBedRequest) (*model.BedView, error)
	GetBed(ctx context.Context, ref string) (*model.BedView, error)
	ListBeds(ctx context.Context, filters *model.BedFilters) ([]*model.BedView, error)
	UpdateBed(ctx context.Context, ref string, req *model.UpdateBedRequest) (*model.BedView, error)
	DeleteBed(ctx context.Context, ref string) error
	AssignPatient(ctx context.Context, ref string, patientID uuid.UUID) (*model.BedView, error)
	DischargePatient(ctx context.Context, ref string) (*model.BedView, error)
	UpdateStatus(ctx context.Context, ref string, req *model.UpdateBedStatusRequest) (*model.BedView, error)
	AssignNurse(ctx context.Context, ref string, staffID *uuid.UUID) (*model.BedView, error)
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

func (s *Service) CreateBed(ctx context.Context, req *model.CreateBedRequest) (*model.BedView, error) {
	bed := &model.Bed{
		Number:        req.Number,
		RoomNumber:    req.RoomNumber,
		Floor:         req.Floor,
		Ward:          req.Ward,
		Type:          req.Type,
		Status:        model.BedStatusAvailable,
		AssignedNurse: req.AssignedNurse,
		Equipment:     pq.StringArray(req.Equipment),
		Features:      req.Features,
		Notes:         req.Notes,
	}
	if bed.Type == "" {
		bed.Type = model.BedTypeStandard
	}

	if _, err := s.store.Beds().GetByNumber(ctx, bed.Number); err == nil {
		return nil, apperrors.NewConflict(MsgBedNumberExists, nil)
	} else if !service.IsNotFound(err) {
		return nil, service.StoreError("Bed", err)
	}
	if bed.AssignedNurse != nil {
		if err := s.checkNurse(ctx, s.store, *bed.AssignedNurse); err != nil {
			return nil, err
		}
	}

	bed.Touch(s.now())
	if err := s.store.Beds().Create(ctx, bed); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict(MsgBedNumberExists, err)
		}
		return nil, service.StoreError("Bed", err)
	}

	log.Info().Str("bed", bed.Number).Str("ward", bed.Ward).Msg("Bed created")
	return &model.BedView{Bed: normalize(bed)}, nil
}

func (s *Service) GetBed(ctx context.Context, ref string) (*model.BedView, error) {
	bed, err := s.resolve(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.store, bed)
}

// ListBeds merges each occupant in with one batched patient lookup.
func (s *Service) ListBeds(ctx context.Context, filters *model.BedFilters) ([]*model.BedView, error) {
	beds, err := s.store.Beds().List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("Bed", err)
	}

	var ids []uuid.UUID
	for _, b := range beds {
		if b.PatientID != nil {
			ids = append(ids, *b.PatientID)
		}
	}
	patients, err := s.store.Patients().ListByIDs(ctx, ids)
	if err != nil {
		return nil, service.StoreError("Patient", err)
	}
	byID := make(map[uuid.UUID]*model.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	views := make([]*model.BedView, 0, len(beds))
	for _, b := range beds {
		v := &model.BedView{Bed: normalize(b)}
		if b.PatientID != nil {
			if p, ok := byID[*b.PatientID]; ok {
				v.Patient = p.Summary()
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// UpdateBed edits descriptive fields. Status and occupant are left alone.
func (s *Service) UpdateBed(ctx context.Context, ref string, req *model.UpdateBedRequest) (*model.BedView, error) {
	var result *model.BedView
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}

		if req.Number != nil && *req.Number != bed.Number {
			if _, err := tx.Beds().GetByNumber(ctx, *req.Number); err == nil {
				return apperrors.NewConflict(MsgBedNumberExists, nil)
			} else if !service.IsNotFound(err) {
				return service.StoreError("Bed", err)
			}
			bed.Number = *req.Number
		}
		if req.RoomNumber != nil {
			bed.RoomNumber = *req.RoomNumber
		}
		if req.Floor != nil {
			bed.Floor = *req.Floor
		}
		if req.Ward != nil {
			bed.Ward = *req.Ward
		}
		if req.Type != nil {
			bed.Type = *req.Type
		}
		if req.Equipment != nil {
			bed.Equipment = pq.StringArray(req.Equipment)
		}
		if req.Features != nil {
			bed.Features = *req.Features
		}
		if req.Notes != nil {
			bed.Notes = *req.Notes
		}

		bed.Touch(s.now())
		if err := tx.Beds().Update(ctx, bed); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict(MsgBedNumberExists, err)
			}
			return service.StoreError("Bed", err)
		}
		result, err = s.view(ctx, tx, bed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) DeleteBed(ctx context.Context, ref string) error {
	var number string
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}
		if bed.Status == model.BedStatusOccupied || bed.PatientID != nil {
			return apperrors.NewPrecondition(MsgBedOccupied)
		}
		number = bed.Number
		return service.StoreError("Bed", tx.Beds().Delete(ctx, bed.ID))
	})
	if err != nil {
		return err
	}
	log.Info().Str("bed", number).Msg("Bed deleted")
	return nil
}

// AssignPatient links a patient to an available bed. Bed and patient rows are
// locked in that order; every check is made against the locked rows.
func (s *Service) AssignPatient(ctx context.Context, ref string, patientID uuid.UUID) (*model.BedView, error) {
	var result *model.BedView
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}
		if !bed.IsAssignable() {
			if bed.PatientID != nil && bed.Status == model.BedStatusAvailable {
				return apperrors.NewPrecondition(MsgBedTaken)
			}
			return apperrors.NewPrecondition(MsgBedNotAvailable)
		}

		patient, err := tx.Patients().GetForUpdate(ctx, patientID)
		if err != nil {
			if service.IsNotFound(err) {
				return apperrors.NewNotFound("Patient", err)
			}
			return service.StoreError("Patient", err)
		}
		if patient.IsDischarged() {
			return apperrors.NewPrecondition(MsgPatientDischarged)
		}
		if _, err := tx.Beds().GetByPatient(ctx, patient.ID); err == nil {
			return apperrors.NewPrecondition(MsgPatientHasBed)
		} else if !service.IsNotFound(err) {
			return service.StoreError("Bed", err)
		}

		bed.PatientID = &patient.ID
		bed.Status = model.BedStatusOccupied
		bed.Touch(s.now())
		if err := tx.Beds().Update(ctx, bed); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewPrecondition(MsgPatientHasBed)
			}
			return service.StoreError("Bed", err)
		}

		result = &model.BedView{Bed: normalize(bed), Patient: patient.Summary()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBedTransition(string(model.BedStatusAvailable), string(model.BedStatusOccupied))
	log.Info().
		Str("bed", result.Number).
		Str("patient_id", patientID.String()).
		Msg("Patient assigned to bed")
	return result, nil
}

// DischargePatient unlinks the occupant and sends the bed to cleaning.
func (s *Service) DischargePatient(ctx context.Context, ref string) (*model.BedView, error) {
	var (
		result    *model.BedView
		patientID uuid.UUID
	)
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}
		if bed.PatientID == nil {
			return apperrors.NewPrecondition(MsgNoPatientAssigned)
		}
		patientID = *bed.PatientID
		if _, err := tx.Patients().GetForUpdate(ctx, patientID); err != nil && !service.IsNotFound(err) {
			return service.StoreError("Patient", err)
		}

		bed.PatientID = nil
		bed.Status = model.BedStatusCleaning
		bed.Touch(s.now())
		if err := tx.Beds().Update(ctx, bed); err != nil {
			return service.StoreError("Bed", err)
		}

		result = &model.BedView{Bed: normalize(bed)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBedTransition(string(model.BedStatusOccupied), string(model.BedStatusCleaning))
	log.Info().
		Str("bed", result.Number).
		Str("patient_id", patientID.String()).
		Msg("Patient discharged from bed")
	return result, nil
}

// UpdateStatus applies a manual status change. Only cleaning complete and
// entering or leaving maintenance are manual; occupied and cleaning are
// reached through assign and discharge.
func (s *Service) UpdateStatus(ctx context.Context, ref string, req *model.UpdateBedStatusRequest) (*model.BedView, error) {
	var (
		result *model.BedView
		from   model.BedStatus
	)
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}
		from = bed.Status
		if err := CheckTransition(from, req.Status); err != nil {
			return err
		}

		now := s.now()
		switch {
		case from == model.BedStatusCleaning && req.Status == model.BedStatusAvailable:
			bed.LastCleanedAt = &now
		case from == model.BedStatusMaintenance && req.Status == model.BedStatusAvailable:
			bed.LastMaintenanceAt = &now
		}
		bed.Status = req.Status
		if req.Notes != nil {
			bed.Notes = *req.Notes
		}
		bed.Touch(now)
		if err := tx.Beds().Update(ctx, bed); err != nil {
			return service.StoreError("Bed", err)
		}
		result = &model.BedView{Bed: normalize(bed)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBedTransition(string(from), string(req.Status))
	log.Info().
		Str("bed", result.Number).
		Str("from", string(from)).
		Str("to", string(req.Status)).
		Msg("Bed status changed")
	return result, nil
}

// CheckTransition validates a manual status change.
func CheckTransition(from, to model.BedStatus) error {
	if from == to {
		return apperrors.NewPrecondition(fmt.Sprintf("Bed is already %s", to))
	}
	switch to {
	case model.BedStatusOccupied:
		return apperrors.NewPrecondition("Beds become occupied only by assigning a patient")
	case model.BedStatusCleaning:
		return apperrors.NewPrecondition("Beds go to cleaning only when a patient is discharged")
	}
	if from == model.BedStatusOccupied {
		return apperrors.NewPrecondition("Bed is occupied; discharge the patient first")
	}
	switch {
	case from == model.BedStatusCleaning && to == model.BedStatusAvailable,
		from == model.BedStatusAvailable && to == model.BedStatusMaintenance,
		from == model.BedStatusMaintenance && to == model.BedStatusAvailable:
		return nil
	}
	return apperrors.NewPrecondition(fmt.Sprintf("Cannot change bed status from %s to %s", from, to))
}

// AssignNurse sets or clears (nil staffID) the nurse responsible for a bed.
func (s *Service) AssignNurse(ctx context.Context, ref string, staffID *uuid.UUID) (*model.BedView, error) {
	var result *model.BedView
	err := service.WithTx(ctx, s.store, "Bed", func(tx repository.Repositories) error {
		bed, err := s.lock(ctx, tx, ref)
		if err != nil {
			return err
		}
		if staffID != nil {
			if err := s.checkNurse(ctx, tx, *staffID); err != nil {
				return err
			}
		}
		bed.AssignedNurse = staffID
		bed.Touch(s.now())
		if err := tx.Beds().Update(ctx, bed); err != nil {
			return service.StoreError("Bed", err)
		}
		result, err = s.view(ctx, tx, bed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) checkNurse(ctx context.Context, repos repository.Repositories, staffID uuid.UUID) error {
	staff, err := repos.Staff().Get(ctx, staffID)
	if err != nil {
		if service.IsNotFound(err) {
			return apperrors.NewNotFound("Staff member", err)
		}
		return service.StoreError("Staff member", err)
	}
	if staff.Role != model.StaffRoleNurse {
		return apperrors.NewPrecondition(MsgStaffNotNurse)
	}
	return nil
}

// resolve finds a bed by uuid or, failing that, by bed number.
func (s *Service) resolve(ctx context.Context, repos repository.Repositories, ref string) (*model.Bed, error) {
	var (
		bed *model.Bed
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		bed, err = repos.Beds().Get(ctx, id)
	} else {
		bed, err = repos.Beds().GetByNumber(ctx, ref)
	}
	if err != nil {
		return nil, service.StoreError("Bed", err)
	}
	return bed, nil
}

// lock resolves ref and re-reads the bed row under a lock.
func (s *Service) lock(ctx context.Context, tx repository.Repositories, ref string) (*model.Bed, error) {
	bed, err := s.resolve(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	locked, err := tx.Beds().GetForUpdate(ctx, bed.ID)
	if err != nil {
		return nil, service.StoreError("Bed", err)
	}
	return locked, nil
}

func (s *Service) view(ctx context.Context, repos repository.Repositories, bed *model.Bed) (*model.BedView, error) {
	v := &model.BedView{Bed: normalize(bed)}
	if bed.PatientID == nil {
		return v, nil
	}
	patient, err := repos.Patients().Get(ctx, *bed.PatientID)
	if err != nil {
		return nil, service.StoreError("Patient", err)
	}
	v.Patient = patient.Summary()
	return v, nil
}

func normalize(b *model.Bed) *model.Bed {
	if b.Equipment == nil {
		b.Equipment = pq.StringArray{}
	}
	return b
}

var _ BedService = (*Service)(nil)
