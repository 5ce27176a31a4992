package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists booked appointments.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) (*Appointment, error)
}

type appointmentDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository writes appointments through pgx.
type PostgresRepository struct {
	db appointmentDB
}

// NewPostgresRepository creates a repository backed by pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db appointmentDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes appt and returns the stored row. A blank ID is generated.
func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if appt == nil {
		return nil, fmt.Errorf("appointments: appointment required")
	}
	row := *appt
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	payload := row.TriagePayload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	query := `
		INSERT INTO appointments (
			id, patient_id, clinic_id, appointment_time, status,
			triage_summary, patient_instructions, triage_payload
		)
		VALUES ($1, $2, $3::bigint, $4, $5, $6, $7, $8)
		RETURNING appointment_time, created_at
	`
	if err := r.db.QueryRow(ctx, query,
		row.ID, row.PatientID, row.ClinicID, row.AppointmentTime.UTC(), string(row.Status),
		row.TriageSummary, row.PatientInstructions, []byte(payload),
	).Scan(&row.AppointmentTime, &row.CreatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	row.TriagePayload = payload
	return &row, nil
}
