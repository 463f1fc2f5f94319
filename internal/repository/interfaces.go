package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/model"
)

// Sentinel errors returned by every store implementation. Services translate
// them into application errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrUnavailable = errors.New("database unavailable")
)

// All repository interfaces in one file
type (
	// PatientRepository reads patients with BedNumber and RoomNumber
	// resolved from the bed that references them.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// GetForUpdate locks the patient row until the transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Patient, error)
	}

	BedRepository interface {
		Create(ctx context.Context, bed *model.Bed) error
		Get(ctx context.Context, id uuid.UUID) (*model.Bed, error)
		GetByNumber(ctx context.Context, number string) (*model.Bed, error)
		// GetForUpdate locks the bed row until the transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Bed, error)
		GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.Bed, error)
		Update(ctx context.Context, bed *model.Bed) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error)
	}

	StaffRepository interface {
		Create(ctx context.Context, staff *model.Staff) error
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		GetByEmail(ctx context.Context, email string) (*model.Staff, error)
		GetByEmployeeID(ctx context.Context, employeeID string) (*model.Staff, error)
		Update(ctx context.Context, staff *model.Staff) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error)
	}

	EquipmentRepository interface {
		Create(ctx context.Context, equipment *model.Equipment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
		GetByEquipmentID(ctx context.Context, equipmentID string) (*model.Equipment, error)
		Update(ctx context.Context, equipment *model.Equipment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.EquipmentFilters) ([]*model.Equipment, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	}

	DischargeRepository interface {
		Create(ctx context.Context, record *model.DischargeRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.DischargeRecord, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.DischargeFilters) ([]*model.DischargeRecord, error)
	}

	// TokenRepository tracks revoked access tokens by token id.
	TokenRepository interface {
		Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
		IsRevoked(ctx context.Context, tokenID string) (bool, error)
	}

	Repositories interface {
		Patients() PatientRepository
		Beds() BedRepository
		Staff() StaffRepository
		Equipment() EquipmentRepository
		Users() UserRepository
		Discharges() DischargeRepository
	}

	// Store hands out repositories bound either to the connection or to a
	// transaction. fn's repositories must not be used after fn returns.
	Store interface {
		Repositories
		WithTx(ctx context.Context, fn func(tx Repositories) error) error
	}

	// Database is the connection handle behind a Store.
	Database interface {
		Driver() string
		Ping(ctx context.Context) error
		Reconnect(ctx context.Context) error
		Stats() model.DatabaseStats
	}
)
