package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

type bedRepository struct {
	view
}

// checkBed enforces the unique bed number and the unique patient link.
func (t *tables) checkBed(b *model.Bed) error {
	for id, other := range t.beds {
		if id == b.ID {
			continue
		}
		if other.Number == b.Number {
			return fmt.Errorf("%w: beds_bed_number_key", repository.ErrDuplicate)
		}
		if b.PatientID != nil && other.PatientID != nil && *other.PatientID == *b.PatientID {
			return fmt.Errorf("%w: beds_patient_id_key", repository.ErrDuplicate)
		}
	}
	if b.PatientID != nil {
		if _, ok := t.patients[*b.PatientID]; !ok {
			return fmt.Errorf("bed %s references unknown patient %s", b.Number, *b.PatientID)
		}
	}
	return nil
}

func (r *bedRepository) Create(ctx context.Context, bed *model.Bed) error {
	return r.write(func(t *tables) error {
		if _, ok := t.beds[bed.ID]; ok {
			return fmt.Errorf("%w: beds_pkey", repository.ErrDuplicate)
		}
		if err := t.checkBed(bed); err != nil {
			return err
		}
		t.beds[bed.ID] = cloneBed(*bed)
		return nil
	})
}

func (r *bedRepository) find(match func(b *model.Bed) bool) (*model.Bed, error) {
	var out *model.Bed
	err := r.read(func(t *tables) error {
		for _, b := range t.beds {
			if match(&b) {
				c := cloneBed(b)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *bedRepository) Get(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	var out *model.Bed
	err := r.read(func(t *tables) error {
		b, ok := t.beds[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneBed(b)
		out = &c
		return nil
	})
	return out, err
}

func (r *bedRepository) GetByNumber(ctx context.Context, number string) (*model.Bed, error) {
	return r.find(func(b *model.Bed) bool { return b.Number == number })
}

func (r *bedRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	return r.Get(ctx, id)
}

func (r *bedRepository) GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.Bed, error) {
	return r.find(func(b *model.Bed) bool { return b.PatientID != nil && *b.PatientID == patientID })
}

func (r *bedRepository) Update(ctx context.Context, bed *model.Bed) error {
	return r.write(func(t *tables) error {
		if _, ok := t.beds[bed.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := t.checkBed(bed); err != nil {
			return err
		}
		t.beds[bed.ID] = cloneBed(*bed)
		return nil
	})
}

func (r *bedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.beds[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.beds, id)
		return nil
	})
}

func (r *bedRepository) List(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error) {
	if filters == nil {
		filters = &model.BedFilters{}
	}
	var out []*model.Bed
	err := r.read(func(t *tables) error {
		for _, b := range t.beds {
			if filters.Matches(&b) {
				c := cloneBed(b)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.Bed) int {
		return strings.Compare(a.Number, b.Number)
	})
	return append([]*model.Bed{}, page(out, filters.BaseFilter)...), nil
}
