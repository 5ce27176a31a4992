package appointments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DashboardRepository reads and updates appointments on behalf of a clinic
// owner. Every query is scoped to clinics the owner holds.
type DashboardRepository interface {
	ListForOwner(ctx context.Context, ownerID string, filter ListFilter) ([]DashboardAppointment, error)
	ExportForOwner(ctx context.Context, ownerID string) ([]ExportRow, error)
	UpdateStatusForOwner(ctx context.Context, ownerID, appointmentID string, status Status) error
}

// SQLDashboardRepository implements DashboardRepository on database/sql.
type SQLDashboardRepository struct {
	db *sql.DB
}

func NewSQLDashboardRepository(db *sql.DB) *SQLDashboardRepository {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &SQLDashboardRepository{db: db}
}

func (r *SQLDashboardRepository) ListForOwner(ctx context.Context, ownerID string, filter ListFilter) ([]DashboardAppointment, error) {
	var statuses []string
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	query := `
		SELECT a.id::text, a.appointment_time, a.status, COALESCE(a.triage_summary, ''),
			c.id::text, c.name, COALESCE(u.id::text, ''), COALESCE(u.full_name, '')
		FROM appointments a
		JOIN clinics c ON c.id = a.clinic_id
		LEFT JOIN users u ON u.id = a.patient_id
		WHERE c.owner_id = $1
			AND ($2::text[] IS NULL OR a.status = ANY($2::text[]))
		ORDER BY a.appointment_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("appointments: list for owner: %w", err)
	}
	defer rows.Close()

	out := []DashboardAppointment{}
	for rows.Next() {
		var a DashboardAppointment
		var status string
		if err := rows.Scan(&a.ID, &a.AppointmentTime, &status, &a.TriageSummary,
			&a.Clinic.ID, &a.Clinic.Name, &a.Patient.ID, &a.Patient.FullName); err != nil {
			return nil, fmt.Errorf("appointments: scan dashboard row: %w", err)
		}
		a.Status = Status(status)
		if a.Patient.FullName == "" {
			a.Patient.FullName = unknownPatientDashboard
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate dashboard rows: %w", err)
	}
	return out, nil
}

func (r *SQLDashboardRepository) ExportForOwner(ctx context.Context, ownerID string) ([]ExportRow, error) {
	query := `
		SELECT a.id::text, COALESCE(u.full_name, ''), a.appointment_time, a.status,
			c.name, COALESCE(a.triage_summary, ''), a.created_at
		FROM appointments a
		JOIN clinics c ON c.id = a.clinic_id
		LEFT JOIN users u ON u.id = a.patient_id
		WHERE c.owner_id = $1
		ORDER BY a.appointment_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("appointments: export for owner: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		var status string
		if err := rows.Scan(&row.ID, &row.PatientName, &row.AppointmentTime, &status,
			&row.ClinicName, &row.TriageSummary, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan export row: %w", err)
		}
		row.Status = Status(status)
		if row.PatientName == "" {
			row.PatientName = unknownPatientExport
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate export rows: %w", err)
	}
	return out, nil
}

// UpdateStatusForOwner returns ErrAppointmentNotFound when the appointment
// does not exist or belongs to another owner's clinic.
func (r *SQLDashboardRepository) UpdateStatusForOwner(ctx context.Context, ownerID, appointmentID string, status Status) error {
	if _, err := uuid.Parse(appointmentID); err != nil {
		return ErrAppointmentNotFound
	}
	query := `
		UPDATE appointments a
		SET status = $1
		FROM clinics c
		WHERE a.clinic_id = c.id AND a.id = $2 AND c.owner_id = $3
	`
	res, err := r.db.ExecContext(ctx, query, string(status), appointmentID, ownerID)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appointments: update status rows: %w", err)
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
