package memory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

// tables holds value copies of every record. Nothing handed out by a
// repository aliases the stored data.
type tables struct {
	patients   map[uuid.UUID]model.Patient
	beds       map[uuid.UUID]model.Bed
	staff      map[uuid.UUID]model.Staff
	equipment  map[uuid.UUID]model.Equipment
	users      map[uuid.UUID]model.User
	discharges map[uuid.UUID]model.DischargeRecord
}

func newTables() *tables {
	return &tables{
		patients:   map[uuid.UUID]model.Patient{},
		beds:       map[uuid.UUID]model.Bed{},
		staff:      map[uuid.UUID]model.Staff{},
		equipment:  map[uuid.UUID]model.Equipment{},
		users:      map[uuid.UUID]model.User{},
		discharges: map[uuid.UUID]model.DischargeRecord{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for id, p := range t.patients {
		c.patients[id] = clonePatient(p)
	}
	for id, b := range t.beds {
		c.beds[id] = cloneBed(b)
	}
	for id, s := range t.staff {
		c.staff[id] = cloneStaff(s)
	}
	for id, e := range t.equipment {
		c.equipment[id] = cloneEquipment(e)
	}
	for id, u := range t.users {
		c.users[id] = cloneUser(u)
	}
	for id, d := range t.discharges {
		c.discharges[id] = cloneDischarge(d)
	}
	return c
}

// Store is an in-process repository.Store. Transactions are serialised under
// one lock and run against a staged copy that replaces the live tables on
// commit, so a failed transaction leaves no trace.
type Store struct {
	*repositories

	mu   sync.RWMutex
	data *tables
	now  func() time.Time

	closed     atomic.Bool
	reconnects atomic.Int64
}

type Option func(*Store)

// WithClock overrides the clock used for computed fields in filters.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		data: newTables(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repositories = newRepositories(view{store: s})
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := s.available(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := s.data.clone()
	if err := fn(newRepositories(view{store: s, staged: staged})); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *Store) available() error {
	if s.closed.Load() {
		return repository.ErrUnavailable
	}
	return nil
}

func (s *Store) Driver() string {
	return config.DriverMemory
}

func (s *Store) Ping(ctx context.Context) error {
	return s.available()
}

// Reconnect reopens a closed store; the data survives.
func (s *Store) Reconnect(ctx context.Context) error {
	s.reconnects.Add(1)
	s.closed.Store(false)
	return nil
}

// Close makes every operation fail with ErrUnavailable until Reconnect.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) Stats() model.DatabaseStats {
	return model.DatabaseStats{
		Driver:     s.Driver(),
		Connected:  !s.closed.Load(),
		Reconnects: s.reconnects.Load(),
	}
}

// view routes repository calls to the live tables under the store lock, or
// to a transaction's staged tables, which the transaction already owns.
type view struct {
	store  *Store
	staged *tables
}

func (v view) read(fn func(t *tables) error) error {
	if v.staged != nil {
		return fn(v.staged)
	}
	if err := v.store.available(); err != nil {
		return err
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.data)
}

func (v view) write(fn func(t *tables) error) error {
	if v.staged != nil {
		return fn(v.staged)
	}
	if err := v.store.available(); err != nil {
		return err
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

type repositories struct {
	patients   *patientRepository
	beds       *bedRepository
	staff      *staffRepository
	equipment  *equipmentRepository
	users      *userRepository
	discharges *dischargeRepository
}

func newRepositories(v view) *repositories {
	return &repositories{
		patients:   &patientRepository{view: v},
		beds:       &bedRepository{view: v},
		staff:      &staffRepository{view: v},
		equipment:  &equipmentRepository{view: v},
		users:      &userRepository{view: v},
		discharges: &dischargeRepository{view: v},
	}
}

func (r *repositories) Patients() repository.PatientRepository { return r.patients }
func (r *repositories) Beds() repository.BedRepository { return r.beds }
func (r *repositories) Staff() repository.StaffRepository { return r.staff }
func (r *repositories) Equipment() repository.EquipmentRepository { return r.equipment }
func (r *repositories) Users() repository.UserRepository { return r.users }
func (r *repositories) Discharges() repository.DischargeRepository { return r.discharges }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clonePatient(p model.Patient) model.Patient {
	p.Allergies = slices.Clone(p.Allergies)
	p.DischargeDate = clonePtr(p.DischargeDate)
	p.BedNumber = clonePtr(p.BedNumber)
	p.RoomNumber = clonePtr(p.RoomNumber)
	return p
}

func cloneBed(b model.Bed) model.Bed {
	b.PatientID = clonePtr(b.PatientID)
	b.AssignedNurse = clonePtr(b.AssignedNurse)
	b.Equipment = slices.Clone(b.Equipment)
	b.LastCleanedAt = clonePtr(b.LastCleanedAt)
	b.LastMaintenanceAt = clonePtr(b.LastMaintenanceAt)
	return b
}

func cloneStaff(s model.Staff) model.Staff {
	s.Schedule = slices.Clone(s.Schedule)
	return s
}

func cloneEquipment(e model.Equipment) model.Equipment {
	e.LastMaintenance = clonePtr(e.LastMaintenance)
	e.NextMaintenance = clonePtr(e.NextMaintenance)
	return e
}

func cloneUser(u model.User) model.User {
	u.LockedUntil = clonePtr(u.LockedUntil)
	u.LastLoginAt = clonePtr(u.LastLoginAt)
	return u
}

func cloneDischarge(d model.DischargeRecord) model.DischargeRecord {
	d.BedNumber = clonePtr(d.BedNumber)
	d.RoomNumber = clonePtr(d.RoomNumber)
	return d
}

// page applies offset and limit to an already sorted slice.
func page[T any](items []T, f model.BaseFilter) []T {
	if f.Offset > 0 {
		if f.Offset >= len(items) {
			return items[:0]
		}
		items = items[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	return items
}

var (
	_ repository.Store    = (*Store)(nil)
	_ repository.Database = (*Store)(nil)
)
