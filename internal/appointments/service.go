package appointments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/events"
	"github.com/wolfman30/klinikai/internal/observability/metrics"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

var appointmentsTracer = otel.Tracer("klinikai.internal.appointments")

const defaultPatientID = "00000000-0000-0000-0000-000000000001"

// ClinicDirectory looks up the clinic being booked.
type ClinicDirectory interface {
	GetClinic(ctx context.Context, id string) (*clinics.Clinic, error)
}

// Notifier is told about every successful booking.
type Notifier interface {
	NotifyAppointmentBooked(ctx context.Context, evt events.AppointmentBookedV1) error
}

// Service books appointments and answers dashboard queries.
type Service struct {
	repo      Repository
	dashboard DashboardRepository
	clinics   ClinicDirectory
	publisher events.Publisher
	notifier  Notifier
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger

	now              func() time.Time
	location         *time.Location
	appointmentHour  int
	defaultPatientID string
}

// Option customizes a Service.
type Option func(*Service)

func WithDashboard(d DashboardRepository) Option {
	return func(s *Service) { s.dashboard = d }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule sets the timezone and hour used for next-day slots.
func WithSchedule(loc *time.Location, hour int) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
		if hour >= 0 && hour < 24 {
			s.appointmentHour = hour
		}
	}
}

// WithDefaultPatient sets the patient used when a booking names none.
func WithDefaultPatient(id string) Option {
	return func(s *Service) {
		if strings.TrimSpace(id) != "" {
			s.defaultPatientID = strings.TrimSpace(id)
		}
	}
}

// NewService constructs the appointments service.
func NewService(repo Repository, directory ClinicDirectory, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if directory == nil {
		panic("appointments: clinic directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:             repo,
		clinics:          directory,
		logger:           logger,
		now:              time.Now,
		location:         time.UTC,
		appointmentHour:  9,
		defaultPatientID: defaultPatientID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextSlot returns 09:00 (or the configured hour) on the calendar day after
// now, in the service's timezone.
func (s *Service) NextSlot(now time.Time) time.Time {
	local := now.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, s.appointmentHour, 0, 0, 0, s.location)
}

// Book inserts a confirmed appointment for the requested clinic.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Confirmation, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()

	clinicID := strings.TrimSpace(string(req.ClinicID))
	span.SetAttributes(attribute.String("klinikai.clinic_id", clinicID))
	if clinicID == "" {
		return nil, clinics.ErrClinicNotFound
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = s.defaultPatientID
	} else if _, err := uuid.Parse(patientID); err != nil {
		return nil, ErrInvalidPatient
	}

	clinic, err := s.clinics.GetClinic(ctx, clinicID)
	if err != nil {
		if !errors.Is(err, clinics.ErrClinicNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}

	var result triage.Result
	if req.TriageResult != nil {
		result = *req.TriageResult
	}
	filled := result.WithBookingDefaults()

	start := time.Now()
	stored, err := s.repo.Insert(ctx, &Appointment{
		ID:                  uuid.NewString(),
		PatientID:           patientID,
		ClinicID:            string(clinic.ID),
		AppointmentTime:     s.NextSlot(s.now()).UTC(),
		Status:              StatusConfirmed,
		TriageSummary:       filled.SummaryForClinician,
		PatientInstructions: filled.NextStepForPatient,
		TriagePayload:       req.triagePayload(),
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("error", time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.ObserveBooking("confirmed", time.Since(start).Seconds())
	s.logger.Info("appointment booked", "appointment_id", stored.ID, "clinic_id", clinic.ID, "patient_id", patientID)

	evt := events.AppointmentBookedV1{
		AppointmentID:   stored.ID,
		ClinicID:        string(clinic.ID),
		ClinicName:      clinic.Name,
		PatientID:       patientID,
		Status:          string(stored.Status),
		TriageSummary:   stored.TriageSummary,
		AppointmentTime: stored.AppointmentTime.UTC(),
		BookedAt:        s.now().UTC(),
	}
	if req.TriageResult != nil {
		evt.Specialty = filled.IdentifiedSpecialty
		evt.Urgency = string(filled.Urgency)
	}
	s.afterBooking(ctx, evt)

	return &Confirmation{
		ID:              stored.ID,
		Clinic:          clinic.Name,
		AppointmentTime: stored.AppointmentTime.UTC(),
		Instructions:    stored.PatientInstructions,
	}, nil
}

// afterBooking runs side effects that must never fail a committed booking.
func (s *Service) afterBooking(ctx context.Context, evt events.AppointmentBookedV1) {
	if s.publisher != nil {
		env, err := events.NewEnvelope(evt.Aggregate(), evt)
		if err == nil {
			err = s.publisher.Publish(ctx, env)
		}
		s.metrics.ObserveSideEffect("event", err)
		if err != nil {
			s.logger.Warn("failed to publish appointment event", "appointment_id", evt.AppointmentID, "error", err)
		}
	}
	if s.notifier != nil {
		err := s.notifier.NotifyAppointmentBooked(ctx, evt)
		s.metrics.ObserveSideEffect("email", err)
		if err != nil {
			s.logger.Warn("failed to notify clinic owner", "appointment_id", evt.AppointmentID, "error", err)
		}
	}
}

// List returns the owner's appointments ordered by time ascending.
func (s *Service) List(ctx context.Context, ownerID string, filter ListFilter) ([]DashboardAppointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.list")
	defer span.End()

	if err := s.requireDashboard(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return []DashboardAppointment{}, nil
	}
	return s.dashboard.ListForOwner(ctx, ownerID, filter)
}

// Export writes the owner's appointments as CSV, newest first.
func (s *Service) Export(ctx context.Context, ownerID string, w io.Writer) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.export")
	defer span.End()

	if err := s.requireDashboard(); err != nil {
		return err
	}
	var rows []ExportRow
	if _, err := uuid.Parse(ownerID); err == nil {
		rows, err = s.dashboard.ExportForOwner(ctx, ownerID)
		if err != nil {
			return err
		}
	}
	return WriteCSV(w, rows)
}

// UpdateStatus changes the status of one of the owner's appointments.
func (s *Service) UpdateStatus(ctx context.Context, ownerID, appointmentID string, status Status) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.update_status")
	defer span.End()

	if err := s.requireDashboard(); err != nil {
		return err
	}
	status, err := ParseStatus(string(status))
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return ErrAppointmentNotFound
	}
	if err := s.dashboard.UpdateStatusForOwner(ctx, ownerID, appointmentID, status); err != nil {
		return err
	}
	s.logger.Info("appointment status updated", "appointment_id", appointmentID, "status", status, "owner_id", ownerID)
	return nil
}

func (s *Service) requireDashboard() error {
	if s.dashboard == nil {
		return fmt.Errorf("appointments: dashboard repository not configured")
	}
	return nil
}
