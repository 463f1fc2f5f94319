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

type equipmentRepository struct {
	view
}

func (t *tables) checkEquipment(e *model.Equipment) error {
	for id, other := range t.equipment {
		if id != e.ID && other.EquipmentID == e.EquipmentID {
			return fmt.Errorf("%w: equipment_equipment_id_key", repository.ErrDuplicate)
		}
	}
	return nil
}

func (r *equipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	return r.write(func(t *tables) error {
		if _, ok := t.equipment[equipment.ID]; ok {
			return fmt.Errorf("%w: equipment_pkey", repository.ErrDuplicate)
		}
		if err := t.checkEquipment(equipment); err != nil {
			return err
		}
		t.equipment[equipment.ID] = cloneEquipment(*equipment)
		return nil
	})
}

func (r *equipmentRepository) find(match func(e *model.Equipment) bool) (*model.Equipment, error) {
	var out *model.Equipment
	err := r.read(func(t *tables) error {
		for _, e := range t.equipment {
			if match(&e) {
				c := cloneEquipment(e)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *equipmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	return r.find(func(e *model.Equipment) bool { return e.ID == id })
}

func (r *equipmentRepository) GetByEquipmentID(ctx context.Context, equipmentID string) (*model.Equipment, error) {
	return r.find(func(e *model.Equipment) bool { return e.EquipmentID == equipmentID })
}

func (r *equipmentRepository) Update(ctx context.Context, equipment *model.Equipment) error {
	return r.write(func(t *tables) error {
		if _, ok := t.equipment[equipment.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := t.checkEquipment(equipment); err != nil {
			return err
		}
		t.equipment[equipment.ID] = cloneEquipment(*equipment)
		return nil
	})
}

func (r *equipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.equipment[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.equipment, id)
		return nil
	})
}

func (r *equipmentRepository) List(ctx context.Context, filters *model.EquipmentFilters) ([]*model.Equipment, error) {
	if filters == nil {
		filters = &model.EquipmentFilters{}
	}
	now := r.store.now()
	var out []*model.Equipment
	err := r.read(func(t *tables) error {
		for _, e := range t.equipment {
			c := cloneEquipment(e)
			c.Derive(now)
			if filters.Matches(&c) {
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.Equipment) int {
		return strings.Compare(a.EquipmentID, b.EquipmentID)
	})
	return append([]*model.Equipment{}, page(out, filters.BaseFilter)...), nil
}
