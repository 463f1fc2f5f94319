package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

const equipmentSelect = `
	SELECT id, created_at, updated_at, equipment_id, name, equipment_type, status,
		location, manufacturer, model, serial_number, last_maintenance,
		next_maintenance, notes
	FROM equipment`

type equipmentRepository struct {
	conn connFunc
}

func (r *equipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO equipment (
			id, created_at, updated_at, equipment_id, name, equipment_type, status,
			location, manufacturer, model, serial_number, last_maintenance,
			next_maintenance, notes
		) VALUES (
			:id, :created_at, :updated_at, :equipment_id, :name, :equipment_type, :status,
			:location, :manufacturer, :model, :serial_number, :last_maintenance,
			:next_maintenance, :notes
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, equipment); err != nil {
		return fmt.Errorf("failed to create equipment: %w", mapError(err))
	}
	return nil
}

func (r *equipmentRepository) getOne(ctx context.Context, cond string, arg interface{}) (*model.Equipment, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	var equipment model.Equipment
	if err := sqlx.GetContext(ctx, q, &equipment, equipmentSelect+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	return &equipment, nil
}

func (r *equipmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *equipmentRepository) GetByEquipmentID(ctx context.Context, equipmentID string) (*model.Equipment, error) {
	return r.getOne(ctx, `equipment_id = $1`, equipmentID)
}

func (r *equipmentRepository) Update(ctx context.Context, equipment *model.Equipment) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		UPDATE equipment SET
			updated_at = :updated_at, equipment_id = :equipment_id, name = :name,
			equipment_type = :equipment_type, status = :status, location = :location,
			manufacturer = :manufacturer, model = :model, serial_number = :serial_number,
			last_maintenance = :last_maintenance, next_maintenance = :next_maintenance,
			notes = :notes
		WHERE id = :id`
	return affected(sqlx.NamedExecContext(ctx, q, query, equipment))
}

func (r *equipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM equipment WHERE id = $1`, id))
}

func (r *equipmentRepository) List(ctx context.Context, filters *model.EquipmentFilters) ([]*model.Equipment, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.EquipmentFilters{}
	}

	var w where
	if filters.Type != "" {
		w.add("equipment_type = ?", filters.Type)
	}
	if filters.Status != "" {
		w.add("status = ?", filters.Status)
	}
	if filters.Location != "" {
		w.add("location = ?", filters.Location)
	}
	if filters.MaintenanceDue != nil {
		if *filters.MaintenanceDue {
			w.add("next_maintenance IS NOT NULL AND next_maintenance <= NOW()")
		} else {
			w.add("(next_maintenance IS NULL OR next_maintenance > NOW())")
		}
	}
	w.search(filters.Search, "equipment_id", "name", "manufacturer", "model", "serial_number")

	query, args := w.page(equipmentSelect+w.String()+` ORDER BY equipment_id`, filters.BaseFilter)

	items := []*model.Equipment{}
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", mapError(err))
	}
	return items, nil
}

var _ repository.EquipmentRepository = (*equipmentRepository)(nil)
