package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/repository"
)

// connFunc yields the executor a repository runs against: the pool, or the
// transaction it was created for.
type connFunc func() (sqlx.ExtContext, error)

type repositories struct {
	patients   *patientRepository
	beds       *bedRepository
	staff      *staffRepository
	equipment  *equipmentRepository
	users      *userRepository
	discharges *dischargeRepository
}

func newRepositories(conn connFunc) *repositories {
	return &repositories{
		patients:   &patientRepository{conn: conn},
		beds:       &bedRepository{conn: conn},
		staff:      &staffRepository{conn: conn},
		equipment:  &equipmentRepository{conn: conn},
		users:      &userRepository{conn: conn},
		discharges: &dischargeRepository{conn: conn},
	}
}

func (r *repositories) Patients() repository.PatientRepository { return r.patients }
func (r *repositories) Beds() repository.BedRepository { return r.beds }
func (r *repositories) Staff() repository.StaffRepository { return r.staff }
func (r *repositories) Equipment() repository.EquipmentRepository { return r.equipment }
func (r *repositories) Users() repository.UserRepository { return r.users }
func (r *repositories) Discharges() repository.DischargeRepository { return r.discharges }

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	*repositories
	db *DB
}

func NewStore(db *DB) *Store {
	pool := func() (sqlx.ExtContext, error) {
		conn, err := db.Conn()
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return &Store{repositories: newRepositories(pool), db: db}
}

// WithTx executes fn within a transaction, rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	conn, err := s.db.Conn()
	if err != nil {
		return err
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	bound := newRepositories(func() (sqlx.ExtContext, error) { return tx, nil })
	if err := fn(bound); err != nil {
		tx.Rollback()
		return err
	}

	return mapError(tx.Commit())
}
