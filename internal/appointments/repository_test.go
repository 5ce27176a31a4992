package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepositoryInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	slot := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("b1b2c3d4-0000-4000-8000-000000000001", "00000000-0000-0000-0000-000000000001", "12",
			pgxmock.AnyArg(), "CONFIRMED", "Patient consultation requested",
			"Please arrive 15 minutes early for your appointment", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time", "created_at"}).AddRow(slot, created))

	stored, err := repo.Insert(context.Background(), &Appointment{
		ID:                  "b1b2c3d4-0000-4000-8000-000000000001",
		PatientID:           "00000000-0000-0000-0000-000000000001",
		ClinicID:            "12",
		AppointmentTime:     slot,
		Status:              StatusConfirmed,
		TriageSummary:       "Patient consultation requested",
		PatientInstructions: "Please arrive 15 minutes early for your appointment",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !stored.CreatedAt.Equal(created) || !stored.AppointmentTime.Equal(slot) {
		t.Fatalf("expected returned timestamps, got %#v", stored)
	}
	if string(stored.TriagePayload) != "{}" {
		t.Fatalf("expected empty payload object, got %s", stored.TriagePayload)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryInsertGeneratesID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time", "created_at"}).AddRow(now, now))

	stored, err := repo.Insert(context.Background(), &Appointment{ClinicID: "1", Status: StatusConfirmed})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(stored.ID) != 36 {
		t.Fatalf("expected generated uuid, got %q", stored.ID)
	}
}

func TestPostgresRepositoryInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	boom := errors.New("violates foreign key constraint")
	mock.ExpectQuery("INSERT INTO appointments").WillReturnError(boom)

	if _, err := repo.Insert(context.Background(), &Appointment{ID: "x", ClinicID: "1"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := repo.Insert(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil appointment")
	}
}
