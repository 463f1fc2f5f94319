package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

const bedSelect = `
	SELECT id, created_at, updated_at, bed_number, room_number, floor, ward, bed_type,
		status, patient_id, assigned_nurse, equipment, features, notes,
		last_cleaned_at, last_maintenance_at
	FROM beds`

type bedRepository struct {
	conn connFunc
}

func (r *bedRepository) Create(ctx context.Context, bed *model.Bed) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO beds (
			id, created_at, updated_at, bed_number, room_number, floor, ward, bed_type,
			status, patient_id, assigned_nurse, equipment, features, notes,
			last_cleaned_at, last_maintenance_at
		) VALUES (
			:id, :created_at, :updated_at, :bed_number, :room_number, :floor, :ward, :bed_type,
			:status, :patient_id, :assigned_nurse, :equipment, :features, :notes,
			:last_cleaned_at, :last_maintenance_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, bed); err != nil {
		return fmt.Errorf("failed to create bed: %w", mapError(err))
	}
	return nil
}

func (r *bedRepository) getOne(ctx context.Context, cond string, arg interface{}) (*model.Bed, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	var bed model.Bed
	if err := sqlx.GetContext(ctx, q, &bed, bedSelect+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	return &bed, nil
}

func (r *bedRepository) Get(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *bedRepository) GetByNumber(ctx context.Context, number string) (*model.Bed, error) {
	return r.getOne(ctx, `bed_number = $1`, number)
}

func (r *bedRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Bed, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *bedRepository) GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.Bed, error) {
	return r.getOne(ctx, `patient_id = $1`, patientID)
}

func (r *bedRepository) Update(ctx context.Context, bed *model.Bed) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		UPDATE beds SET
			updated_at = :updated_at, bed_number = :bed_number, room_number = :room_number,
			floor = :floor, ward = :ward, bed_type = :bed_type, status = :status,
			patient_id = :patient_id, assigned_nurse = :assigned_nurse, equipment = :equipment,
			features = :features, notes = :notes, last_cleaned_at = :last_cleaned_at,
			last_maintenance_at = :last_maintenance_at
		WHERE id = :id`
	return affected(sqlx.NamedExecContext(ctx, q, query, bed))
}

func (r *bedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM beds WHERE id = $1`, id))
}

func (r *bedRepository) List(ctx context.Context, filters *model.BedFilters) ([]*model.Bed, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.BedFilters{}
	}

	var w where
	if filters.Status != "" {
		w.add("status = ?", filters.Status)
	}
	if filters.Ward != "" {
		w.add("ward = ?", filters.Ward)
	}
	if filters.Type != "" {
		w.add("bed_type = ?", filters.Type)
	}
	if filters.Floor != nil {
		w.add("floor = ?", *filters.Floor)
	}
	w.search(filters.Search, "bed_number", "room_number", "ward", "notes")

	query, args := w.page(bedSelect+w.String()+` ORDER BY bed_number`, filters.BaseFilter)

	beds := []*model.Bed{}
	if err := sqlx.SelectContext(ctx, q, &beds, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", mapError(err))
	}
	return beds, nil
}

var _ repository.BedRepository = (*bedRepository)(nil)
