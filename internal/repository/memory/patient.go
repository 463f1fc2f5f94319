package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

type patientRepository struct {
	view
}

// resolveBed fills the derived bed fields from the owning bed.
func (t *tables) resolveBed(p *model.Patient) {
	p.BedNumber, p.RoomNumber = nil, nil
	for _, b := range t.beds {
		if b.PatientID != nil && *b.PatientID == p.ID {
			p.BedNumber = model.StringPtr(b.Number)
			p.RoomNumber = model.StringPtr(b.RoomNumber)
			return
		}
	}
}

// storedPatient drops the derived fields; they are never persisted on the patient.
func storedPatient(p *model.Patient) model.Patient {
	c := clonePatient(*p)
	c.BedNumber, c.RoomNumber = nil, nil
	c.LengthOfStay = 0
	return c
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return r.write(func(t *tables) error {
		if _, ok := t.patients[patient.ID]; ok {
			return fmt.Errorf("%w: patients_pkey", repository.ErrDuplicate)
		}
		t.patients[patient.ID] = storedPatient(patient)
		return nil
	})
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var out *model.Patient
	err := r.read(func(t *tables) error {
		p, ok := t.patients[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := clonePatient(p)
		t.resolveBed(&c)
		out = &c
		return nil
	})
	return out, err
}

func (r *patientRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return r.Get(ctx, id)
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	return r.write(func(t *tables) error {
		if _, ok := t.patients[patient.ID]; !ok {
			return repository.ErrNotFound
		}
		t.patients[patient.ID] = storedPatient(patient)
		return nil
	})
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.patients[id]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range t.beds {
			if b.PatientID != nil && *b.PatientID == id {
				return fmt.Errorf("patient %s is referenced by bed %s", id, b.Number)
			}
		}
		delete(t.patients, id)
		return nil
	})
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	if filters == nil {
		filters = &model.PatientFilters{}
	}
	var out []*model.Patient
	err := r.read(func(t *tables) error {
		beds := make(map[uuid.UUID]model.Bed, len(t.beds))
		for _, b := range t.beds {
			if b.PatientID != nil {
				beds[*b.PatientID] = b
			}
		}
		for _, p := range t.patients {
			c := clonePatient(p)
			if b, ok := beds[c.ID]; ok {
				c.BedNumber = model.StringPtr(b.Number)
				c.RoomNumber = model.StringPtr(b.RoomNumber)
			}
			if filters.Matches(&c) {
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.Patient) int {
		if c := b.AdmissionDate.Compare(a.AdmissionDate); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return append([]*model.Patient{}, page(out, filters.BaseFilter)...), nil
}

func (r *patientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Patient, error) {
	out := []*model.Patient{}
	err := r.read(func(t *tables) error {
		for _, id := range ids {
			p, ok := t.patients[id]
			if !ok {
				continue
			}
			c := clonePatient(p)
			t.resolveBed(&c)
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
