package appointments

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwnerID = "4c1d6a57-3f8e-4a0b-9c55-2b7e9f0d1a23"

func newDashboardMock(t *testing.T) (*SQLDashboardRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLDashboardRepository(db), mock
}

func TestListForOwner(t *testing.T) {
	repo, mock := newDashboardMock(t)

	first := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "appointment_time", "status", "triage_summary", "clinic_id", "clinic_name", "patient_id", "full_name"}).
		AddRow("a-1", first, "CONFIRMED", "Sore throat", "3", "Klinik Dr. Tan", "p-1", "Siti").
		AddRow("a-2", second, "PENDING", "Rash", "3", "Klinik Dr. Tan", "p-2", "")

	mock.ExpectQuery("FROM appointments a").
		WithArgs(testOwnerID, sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.ListForOwner(context.Background(), testOwnerID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a-1", got[0].ID)
	assert.Equal(t, StatusConfirmed, got[0].Status)
	assert.Equal(t, ClinicRef{ID: "3", Name: "Klinik Dr. Tan"}, got[0].Clinic)
	assert.Equal(t, "Siti", got[0].Patient.FullName)
	assert.Equal(t, "Unknown Patient", got[1].Patient.FullName)
	assert.True(t, got[0].AppointmentTime.Before(got[1].AppointmentTime))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForOwnerPassesStatusFilter(t *testing.T) {
	repo, mock := newDashboardMock(t)

	mock.ExpectQuery("a.status = ANY").
		WithArgs(testOwnerID, `{"CONFIRMED","PENDING"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "appointment_time", "status", "triage_summary", "clinic_id", "clinic_name", "patient_id", "full_name"}))

	got, err := repo.ListForOwner(context.Background(), testOwnerID, ListFilter{Statuses: []Status{StatusConfirmed, StatusPending}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForOwnerQueryError(t *testing.T) {
	repo, mock := newDashboardMock(t)
	mock.ExpectQuery("FROM appointments a").WillReturnError(sql.ErrConnDone)

	_, err := repo.ListForOwner(context.Background(), testOwnerID, ListFilter{})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestExportForOwner(t *testing.T) {
	repo, mock := newDashboardMock(t)

	appt := time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 11, 8, 15, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "full_name", "appointment_time", "status", "clinic_name", "triage_summary", "created_at"}).
		AddRow("a-9", "", appt, "CONFIRMED", "Pantai Hospital", "Chest pain", created)

	mock.ExpectQuery("ORDER BY a.appointment_time DESC").
		WithArgs(testOwnerID).
		WillReturnRows(rows)

	got, err := repo.ExportForOwner(context.Background(), testOwnerID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].PatientName)
	assert.Equal(t, "Pantai Hospital", got[0].ClinicName)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusForOwner(t *testing.T) {
	repo, mock := newDashboardMock(t)
	apptID := "8f14e45f-ceea-4e7a-9f1b-1a2b3c4d5e6f"

	mock.ExpectExec("UPDATE appointments a").
		WithArgs("COMPLETED", apptID, testOwnerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatusForOwner(context.Background(), testOwnerID, apptID, StatusCompleted))

	mock.ExpectExec("UPDATE appointments a").
		WithArgs("CANCELLED", apptID, testOwnerID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatusForOwner(context.Background(), testOwnerID, apptID, StatusCancelled)
	assert.True(t, errors.Is(err, ErrAppointmentNotFound))

	err = repo.UpdateStatusForOwner(context.Background(), testOwnerID, "not-a-uuid", StatusCancelled)
	assert.True(t, errors.Is(err, ErrAppointmentNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
