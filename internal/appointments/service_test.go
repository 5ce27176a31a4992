package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/events"
	"github.com/wolfman30/klinikai/internal/triage"
)

type stubRepo struct {
	inserted *Appointment
	err      error
}

func (s *stubRepo) Insert(_ context.Context, appt *Appointment) (*Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	row := *appt
	row.CreatedAt = time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	s.inserted = &row
	return &row, nil
}

type stubDirectory map[string]*clinics.Clinic

func (d stubDirectory) GetClinic(_ context.Context, id string) (*clinics.Clinic, error) {
	if c, ok := d[id]; ok {
		return c, nil
	}
	return nil, clinics.ErrClinicNotFound
}

type stubNotifier struct {
	got []events.AppointmentBookedV1
	err error
}

func (n *stubNotifier) NotifyAppointmentBooked(_ context.Context, evt events.AppointmentBookedV1) error {
	n.got = append(n.got, evt)
	return n.err
}

type stubDashboard struct {
	list      []DashboardAppointment
	export    []ExportRow
	err       error
	gotOwner  string
	gotFilter ListFilter
	updated   map[string]Status
}

func (d *stubDashboard) ListForOwner(_ context.Context, ownerID string, filter ListFilter) ([]DashboardAppointment, error) {
	d.gotOwner = ownerID
	d.gotFilter = filter
	return d.list, d.err
}

func (d *stubDashboard) ExportForOwner(_ context.Context, ownerID string) ([]ExportRow, error) {
	d.gotOwner = ownerID
	return d.export, d.err
}

func (d *stubDashboard) UpdateStatusForOwner(_ context.Context, ownerID, appointmentID string, status Status) error {
	if d.err != nil {
		return d.err
	}
	if _, ok := d.updated[appointmentID]; !ok {
		return ErrAppointmentNotFound
	}
	d.updated[appointmentID] = status
	return nil
}

var directory = stubDirectory{
	"12": {ID: "12", Name: "Klinik Dr. Tan"},
}

func klTime(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestNextSlot(t *testing.T) {
	kl := klTime(t)
	svc := NewService(&stubRepo{}, directory, nil, WithSchedule(kl, 9))

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		// 10 Mar 20:00 UTC is already 11 Mar 04:00 in KL.
		{"local date differs from UTC", time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC)},
		{"morning", time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC), time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)},
		{"month rollover", time.Date(2026, 1, 31, 5, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.NextSlot(tt.now)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got.UTC(), tt.want)
		})
	}
}

func TestBookWithoutTriageUsesDefaults(t *testing.T) {
	repo := &stubRepo{}
	pub := events.NewMemoryPublisher()
	notifier := &stubNotifier{}
	now := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	svc := NewService(repo, directory, nil,
		WithClock(func() time.Time { return now }),
		WithPublisher(pub),
		WithNotifier(notifier),
	)

	conf, err := svc.Book(context.Background(), BookingRequest{ClinicID: "12"})
	require.NoError(t, err)

	require.NotNil(t, repo.inserted)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", repo.inserted.PatientID)
	assert.Equal(t, StatusConfirmed, repo.inserted.Status)
	assert.Equal(t, triage.DefaultSummary, repo.inserted.TriageSummary)
	assert.Equal(t, triage.DefaultInstructions, repo.inserted.PatientInstructions)
	assert.JSONEq(t, `{}`, string(repo.inserted.TriagePayload))
	assert.True(t, repo.inserted.AppointmentTime.Equal(time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, repo.inserted.ID, conf.ID)
	assert.Equal(t, "Klinik Dr. Tan", conf.Clinic)
	assert.Equal(t, triage.DefaultInstructions, conf.Instructions)

	envs := pub.Envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, "clinic:12", envs[0].Aggregate)
	require.Len(t, notifier.got, 1)
	assert.Empty(t, notifier.got[0].Urgency)
}

func TestBookStoresTriageResult(t *testing.T) {
	repo := &stubRepo{}
	notifier := &stubNotifier{}
	svc := NewService(repo, directory, nil, WithNotifier(notifier), WithDefaultPatient("11111111-1111-4111-8111-111111111111"))

	tr := &triage.Result{
		IdentifiedSpecialty: "Cardiology",
		Urgency:             triage.UrgencyHigh,
		SummaryForClinician: "Chest tightness on exertion",
		NextStepForPatient:  "Bring previous ECG results",
	}
	conf, err := svc.Book(context.Background(), BookingRequest{ClinicID: "12", TriageResult: tr})
	require.NoError(t, err)

	assert.Equal(t, "11111111-1111-4111-8111-111111111111", repo.inserted.PatientID)
	assert.Equal(t, "Chest tightness on exertion", repo.inserted.TriageSummary)
	assert.Equal(t, "Bring previous ECG results", conf.Instructions)

	var payload triage.Result
	require.NoError(t, json.Unmarshal(repo.inserted.TriagePayload, &payload))
	assert.Equal(t, *tr, payload)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, "Cardiology", notifier.got[0].Specialty)
	assert.Equal(t, "high", notifier.got[0].Urgency)
}

func TestBookKeepsRawTriageFields(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, directory, nil)

	var req BookingRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"clinicId": 12,
		"triageResult": {
			"identifiedSpecialty": "Cardiology",
			"urgency": "high",
			"summaryForClinician": "Chest tightness on exertion",
			"nextStepForPatient": "Bring previous ECG results",
			"symptomDuration": "3 days",
			"redFlags": ["radiating pain"]
		}
	}`), &req))

	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(repo.inserted.TriagePayload, &stored))
	assert.Equal(t, "3 days", stored["symptomDuration"])
	assert.Equal(t, []any{"radiating pain"}, stored["redFlags"])
	assert.Equal(t, "Cardiology", stored["identifiedSpecialty"])
	assert.Equal(t, "Chest tightness on exertion", repo.inserted.TriageSummary)
}

func TestBookExplicitPatient(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, directory, nil)

	_, err := svc.Book(context.Background(), BookingRequest{ClinicID: "12", PatientID: "22222222-2222-4222-8222-222222222222"})
	require.NoError(t, err)
	assert.Equal(t, "22222222-2222-4222-8222-222222222222", repo.inserted.PatientID)

	_, err = svc.Book(context.Background(), BookingRequest{ClinicID: "12", PatientID: "patient-7"})
	assert.ErrorIs(t, err, ErrInvalidPatient)
}

func TestBookUnknownClinic(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, directory, nil)

	_, err := svc.Book(context.Background(), BookingRequest{ClinicID: "999"})
	assert.ErrorIs(t, err, clinics.ErrClinicNotFound)
	_, err = svc.Book(context.Background(), BookingRequest{})
	assert.ErrorIs(t, err, clinics.ErrClinicNotFound)
	assert.Nil(t, repo.inserted)
}

func TestBookInsertFailure(t *testing.T) {
	boom := errors.New("insert failed")
	notifier := &stubNotifier{}
	svc := NewService(&stubRepo{err: boom}, directory, nil, WithNotifier(notifier))

	_, err := svc.Book(context.Background(), BookingRequest{ClinicID: "12"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, notifier.got, "no side effects for failed bookings")
}

func TestBookSideEffectFailuresDoNotFailBooking(t *testing.T) {
	pub := events.NewMemoryPublisher()
	pub.FailWith(errors.New("queue down"))
	notifier := &stubNotifier{err: errors.New("smtp down")}
	svc := NewService(&stubRepo{}, directory, nil, WithPublisher(pub), WithNotifier(notifier))

	conf, err := svc.Book(context.Background(), BookingRequest{ClinicID: "12"})
	require.NoError(t, err)
	assert.NotEmpty(t, conf.ID)
}

func TestListScopesToOwner(t *testing.T) {
	dash := &stubDashboard{list: []DashboardAppointment{{ID: "a-1"}}}
	svc := NewService(&stubRepo{}, directory, nil, WithDashboard(dash))

	got, err := svc.List(context.Background(), testOwnerID, ListFilter{Statuses: []Status{StatusPending}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, testOwnerID, dash.gotOwner)
	assert.Equal(t, []Status{StatusPending}, dash.gotFilter.Statuses)

	// A subject that is not a user id owns nothing.
	dash.gotOwner = ""
	got, err = svc.List(context.Background(), "service-account", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, dash.gotOwner)
}

func TestListWithoutDashboard(t *testing.T) {
	svc := NewService(&stubRepo{}, directory, nil)
	_, err := svc.List(context.Background(), testOwnerID, ListFilter{})
	assert.Error(t, err)
}

func TestExportWritesCSV(t *testing.T) {
	dash := &stubDashboard{export: []ExportRow{{
		ID:              "a-1",
		PatientName:     "Unknown",
		AppointmentTime: time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC),
		Status:          StatusConfirmed,
		ClinicName:      "Klinik Dr. Tan",
		TriageSummary:   `Says "sharp" pain`,
		CreatedAt:       time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC),
	}}}
	svc := NewService(&stubRepo{}, directory, nil, WithDashboard(dash))

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), testOwnerID, &buf))

	want := "ID,Patient Name,Appointment Time,Status,Clinic,Triage Summary,Created At\n" +
		`"a-1","Unknown","2026-03-11T01:00:00Z","CONFIRMED","Klinik Dr. Tan","Says ""sharp"" pain","2026-03-10T06:30:00Z"`
	assert.Equal(t, want, buf.String())
}

func TestExportEmptyHasHeaderOnly(t *testing.T) {
	svc := NewService(&stubRepo{}, directory, nil, WithDashboard(&stubDashboard{}))

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), testOwnerID, &buf))
	assert.Equal(t, csvHeader, buf.String())
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestUpdateStatus(t *testing.T) {
	dash := &stubDashboard{updated: map[string]Status{"a-1": StatusConfirmed}}
	svc := NewService(&stubRepo{}, directory, nil, WithDashboard(dash))

	require.NoError(t, svc.UpdateStatus(context.Background(), testOwnerID, "a-1", StatusCompleted))
	assert.Equal(t, StatusCompleted, dash.updated["a-1"])

	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), testOwnerID, "a-2", StatusCompleted), ErrAppointmentNotFound)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), testOwnerID, "a-1", Status("DONE")), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "not-a-user", "a-1", StatusCompleted), ErrAppointmentNotFound)
}

func TestUpdateStatusStoresNormalizedStatus(t *testing.T) {
	dash := &stubDashboard{updated: map[string]Status{"a-1": StatusPending}}
	svc := NewService(&stubRepo{}, directory, nil, WithDashboard(dash))

	require.NoError(t, svc.UpdateStatus(context.Background(), testOwnerID, "a-1", Status(" confirmed ")))
	assert.Equal(t, StatusConfirmed, dash.updated["a-1"])
}
