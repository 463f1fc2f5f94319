package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

// The bed columns come from the bed that owns the link.
const patientSelect = `
	SELECT p.id, p.created_at, p.updated_at, p.name, p.age, p.gender, p.contact_number,
		p.emergency_contact, p.blood_type, p.diagnosis, p.allergies, p.attending_doctor,
		p.status, p.admission_date, p.discharge_date, p.notes,
		b.bed_number, b.room_number
	FROM patients p
	LEFT JOIN beds b ON b.patient_id = p.id`

type patientRepository struct {
	conn connFunc
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO patients (
			id, created_at, updated_at, name, age, gender, contact_number,
			emergency_contact, blood_type, diagnosis, allergies, attending_doctor,
			status, admission_date, discharge_date, notes
		) VALUES (
			:id, :created_at, :updated_at, :name, :age, :gender, :contact_number,
			:emergency_contact, :blood_type, :diagnosis, :allergies, :attending_doctor,
			:status, :admission_date, :discharge_date, :notes
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", mapError(err))
	}
	return nil
}

func (r *patientRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*model.Patient, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	query := patientSelect + ` WHERE p.id = $1`
	if lock {
		query += ` FOR UPDATE OF p`
	}
	var patient model.Patient
	if err := sqlx.GetContext(ctx, q, &patient, query, id); err != nil {
		return nil, mapError(err)
	}
	return &patient, nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return r.get(ctx, id, false)
}

func (r *patientRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return r.get(ctx, id, true)
}

// Update writes the patient's own columns; the bed link is never touched.
func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		UPDATE patients SET
			updated_at = :updated_at, name = :name, age = :age, gender = :gender,
			contact_number = :contact_number, emergency_contact = :emergency_contact,
			blood_type = :blood_type, diagnosis = :diagnosis, allergies = :allergies,
			attending_doctor = :attending_doctor, status = :status,
			admission_date = :admission_date, discharge_date = :discharge_date, notes = :notes
		WHERE id = :id`
	return affected(sqlx.NamedExecContext(ctx, q, query, patient))
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id))
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.PatientFilters{}
	}

	var w where
	switch filters.Status {
	case "":
	case model.PatientStatusActive:
		w.add("p.status <> ?", model.PatientStatusDischarged)
	default:
		w.add("p.status = ?", filters.Status)
	}
	if filters.Assigned != nil {
		if *filters.Assigned {
			w.add("b.id IS NOT NULL")
		} else {
			w.add("b.id IS NULL")
		}
	}
	w.search(filters.Search, "p.name", "p.diagnosis", "p.attending_doctor", "b.bed_number")

	query, args := w.page(patientSelect+w.String()+` ORDER BY p.admission_date DESC, p.id`, filters.BaseFilter)

	patients := []*model.Patient{}
	if err := sqlx.SelectContext(ctx, q, &patients, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", mapError(err))
	}
	return patients, nil
}

func (r *patientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Patient, error) {
	if len(ids) == 0 {
		return []*model.Patient{}, nil
	}
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	query, args, err := sqlx.In(patientSelect+` WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	patients := []*model.Patient{}
	if err := sqlx.SelectContext(ctx, q, &patients, q.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	return patients, nil
}

var _ repository.PatientRepository = (*patientRepository)(nil)
