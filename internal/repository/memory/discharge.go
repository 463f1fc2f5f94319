package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

type dischargeRepository struct {
	view
}

func (r *dischargeRepository) Create(ctx context.Context, record *model.DischargeRecord) error {
	return r.write(func(t *tables) error {
		if _, ok := t.discharges[record.ID]; ok {
			return fmt.Errorf("%w: discharge_records_pkey", repository.ErrDuplicate)
		}
		t.discharges[record.ID] = cloneDischarge(*record)
		return nil
	})
}

func (r *dischargeRepository) Get(ctx context.Context, id uuid.UUID) (*model.DischargeRecord, error) {
	var out *model.DischargeRecord
	err := r.read(func(t *tables) error {
		d, ok := t.discharges[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneDischarge(d)
		out = &c
		return nil
	})
	return out, err
}

func (r *dischargeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.discharges[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.discharges, id)
		return nil
	})
}

func (r *dischargeRepository) List(ctx context.Context, filters *model.DischargeFilters) ([]*model.DischargeRecord, error) {
	if filters == nil {
		filters = &model.DischargeFilters{}
	}
	var out []*model.DischargeRecord
	err := r.read(func(t *tables) error {
		for _, d := range t.discharges {
			if filters.Matches(&d) {
				c := cloneDischarge(d)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.DischargeRecord) int {
		if c := b.DischargeDate.Compare(a.DischargeDate); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return append([]*model.DischargeRecord{}, page(out, filters.BaseFilter)...), nil
}
