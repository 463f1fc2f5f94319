package postgres

import (
	"context"
	"fmt"
)

// schema is idempotent; beds.patient_id is the single owning link between a
// bed and its occupant and its UNIQUE constraint keeps one bed per patient.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name VARCHAR(100) NOT NULL,
		age INTEGER NOT NULL CHECK (age >= 0),
		gender VARCHAR(10) NOT NULL,
		contact_number VARCHAR(20) NOT NULL DEFAULT '',
		emergency_contact JSONB NOT NULL DEFAULT '{}',
		blood_type VARCHAR(3) NOT NULL DEFAULT '',
		diagnosis TEXT NOT NULL,
		allergies TEXT[],
		attending_doctor VARCHAR(100) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		admission_date TIMESTAMPTZ NOT NULL,
		discharge_date TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_status ON patients (status)`,

	`CREATE TABLE IF NOT EXISTS staff (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		employee_id VARCHAR(30) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL,
		department VARCHAR(100) NOT NULL DEFAULT '',
		specialization VARCHAR(100) NOT NULL DEFAULT '',
		shift VARCHAR(10) NOT NULL,
		status VARCHAR(10) NOT NULL,
		schedule JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_email ON staff (lower(email))`,

	`CREATE TABLE IF NOT EXISTS beds (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		bed_number VARCHAR(20) NOT NULL UNIQUE,
		room_number VARCHAR(20) NOT NULL,
		floor INTEGER NOT NULL DEFAULT 0,
		ward VARCHAR(50) NOT NULL,
		bed_type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		patient_id UUID UNIQUE REFERENCES patients (id),
		assigned_nurse UUID REFERENCES staff (id) ON DELETE SET NULL,
		equipment TEXT[],
		features JSONB NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		last_cleaned_at TIMESTAMPTZ,
		last_maintenance_at TIMESTAMPTZ,
		CONSTRAINT beds_occupied_link CHECK ((status = 'occupied') = (patient_id IS NOT NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS equipment (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		equipment_id VARCHAR(30) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL,
		equipment_type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		location VARCHAR(100) NOT NULL DEFAULT '',
		manufacturer VARCHAR(100) NOT NULL DEFAULT '',
		model VARCHAR(100) NOT NULL DEFAULT '',
		serial_number VARCHAR(100) NOT NULL DEFAULT '',
		last_maintenance TIMESTAMPTZ,
		next_maintenance TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		username VARCHAR(50) NOT NULL,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(100) NOT NULL,
		role VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		password_hash TEXT NOT NULL,
		failed_login_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TIMESTAMPTZ,
		last_login_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (lower(username))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS discharge_records (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL,
		patient_name VARCHAR(100) NOT NULL,
		diagnosis TEXT NOT NULL,
		bed_number VARCHAR(20),
		room_number VARCHAR(20),
		admission_date TIMESTAMPTZ NOT NULL,
		discharge_date TIMESTAMPTZ NOT NULL,
		length_of_stay INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_discharge_records_date ON discharge_records (discharge_date DESC)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *DB) error {
	conn, err := db.Conn()
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", mapError(err))
		}
	}
	return nil
}
