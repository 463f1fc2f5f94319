package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

const staffSelect = `
	SELECT id, created_at, updated_at, employee_id, name, email, phone, role,
		department, specialization, shift, status, schedule
	FROM staff`

type staffRepository struct {
	conn connFunc
}

func (r *staffRepository) Create(ctx context.Context, staff *model.Staff) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO staff (
			id, created_at, updated_at, employee_id, name, email, phone, role,
			department, specialization, shift, status, schedule
		) VALUES (
			:id, :created_at, :updated_at, :employee_id, :name, :email, :phone, :role,
			:department, :specialization, :shift, :status, :schedule
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, staff); err != nil {
		return fmt.Errorf("failed to create staff member: %w", mapError(err))
	}
	return nil
}

func (r *staffRepository) getOne(ctx context.Context, cond string, arg interface{}) (*model.Staff, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	var staff model.Staff
	if err := sqlx.GetContext(ctx, q, &staff, staffSelect+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	return &staff, nil
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, email)
}

func (r *staffRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*model.Staff, error) {
	return r.getOne(ctx, `employee_id = $1`, employeeID)
}

func (r *staffRepository) Update(ctx context.Context, staff *model.Staff) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		UPDATE staff SET
			updated_at = :updated_at, employee_id = :employee_id, name = :name, email = :email,
			phone = :phone, role = :role, department = :department,
			specialization = :specialization, shift = :shift, status = :status,
			schedule = :schedule
		WHERE id = :id`
	return affected(sqlx.NamedExecContext(ctx, q, query, staff))
}

func (r *staffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id))
}

func (r *staffRepository) List(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.StaffFilters{}
	}

	var w where
	if filters.Role != "" {
		w.add("role = ?", filters.Role)
	}
	if filters.Status != "" {
		w.add("status = ?", filters.Status)
	}
	if filters.Department != "" {
		w.add("department = ?", filters.Department)
	}
	if filters.Date != "" {
		// Containment on the JSONB schedule; with a shift the entry must match both.
		entry := map[string]string{"date": filters.Date}
		if filters.Shift != "" {
			entry["shift"] = string(filters.Shift)
		}
		doc, err := json.Marshal([]map[string]string{entry})
		if err != nil {
			return nil, err
		}
		w.add("schedule @> ?::jsonb", string(doc))
	} else if filters.Shift != "" {
		w.add("shift = ?", filters.Shift)
	}
	w.search(filters.Search, "name", "email", "employee_id", "specialization")

	query, args := w.page(staffSelect+w.String()+` ORDER BY name, id`, filters.BaseFilter)

	staff := []*model.Staff{}
	if err := sqlx.SelectContext(ctx, q, &staff, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", mapError(err))
	}
	return staff, nil
}

var _ repository.StaffRepository = (*staffRepository)(nil)
