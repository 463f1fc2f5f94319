package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

const dischargeSelect = `
	SELECT id, patient_id, patient_name, diagnosis, bed_number, room_number,
		admission_date, discharge_date, length_of_stay, notes, created_at
	FROM discharge_records`

type dischargeRepository struct {
	conn connFunc
}

func (r *dischargeRepository) Create(ctx context.Context, record *model.DischargeRecord) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO discharge_records (
			id, patient_id, patient_name, diagnosis, bed_number, room_number,
			admission_date, discharge_date, length_of_stay, notes, created_at
		) VALUES (
			:id, :patient_id, :patient_name, :diagnosis, :bed_number, :room_number,
			:admission_date, :discharge_date, :length_of_stay, :notes, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, record); err != nil {
		return fmt.Errorf("failed to create discharge record: %w", mapError(err))
	}
	return nil
}

func (r *dischargeRepository) Get(ctx context.Context, id uuid.UUID) (*model.DischargeRecord, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	var record model.DischargeRecord
	if err := sqlx.GetContext(ctx, q, &record, dischargeSelect+` WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}

func (r *dischargeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM discharge_records WHERE id = $1`, id))
}

func (r *dischargeRepository) List(ctx context.Context, filters *model.DischargeFilters) ([]*model.DischargeRecord, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.DischargeFilters{}
	}

	var w where
	from, to := filters.Range()
	if !from.IsZero() {
		w.add("discharge_date >= ?", from)
	}
	if !to.IsZero() {
		w.add("discharge_date < ?", to)
	}
	w.search(filters.Search, "patient_name", "diagnosis", "bed_number")

	query, args := w.page(dischargeSelect+w.String()+` ORDER BY discharge_date DESC, id`, filters.BaseFilter)

	records := []*model.DischargeRecord{}
	if err := sqlx.SelectContext(ctx, q, &records, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list discharge records: %w", mapError(err))
	}
	return records, nil
}

var _ repository.DischargeRepository = (*dischargeRepository)(nil)
