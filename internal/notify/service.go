package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/events"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// RecipientLookup resolves who owns a clinic.
type RecipientLookup interface {
	OwnerContact(ctx context.Context, clinicID string) (*clinics.OwnerContact, error)
}

// Service tells clinic owners about new bookings.
type Service struct {
	email      EmailSender
	recipients RecipientLookup
	location   *time.Location
	logger     *logging.Logger
}

// NewService creates a notification service. A nil email sender or lookup
// turns notifications into no-ops.
func NewService(email EmailSender, recipients RecipientLookup, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		location:   time.UTC,
		logger:     logger,
	}
}

// WithLocation renders appointment times in loc.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.location = loc
	}
	return s
}

// NotifyAppointmentBooked e-mails the owner of the booked clinic. Clinics
// without an owner e-mail are skipped silently.
func (s *Service) NotifyAppointmentBooked(ctx context.Context, evt events.AppointmentBookedV1) error {
	if s.email == nil || s.recipients == nil {
		s.logger.Debug("notify: email not configured, skipping booking notification")
		return nil
	}

	owner, err := s.recipients.OwnerContact(ctx, evt.ClinicID)
	if err != nil {
		if errors.Is(err, clinics.ErrClinicNotFound) {
			s.logger.Debug("notify: clinic has no owner email", "clinic_id", evt.ClinicID)
			return nil
		}
		return fmt.Errorf("notify: lookup owner: %w", err)
	}

	msg := bookingMessage(evt, owner, s.location)
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send booking email", "error", err, "to", owner.Email, "appointment_id", evt.AppointmentID)
		return fmt.Errorf("notify: send booking email: %w", err)
	}
	s.logger.Info("notify: booking email sent", "to", owner.Email, "appointment_id", evt.AppointmentID)
	return nil
}

func bookingMessage(evt events.AppointmentBookedV1, owner *clinics.OwnerContact, loc *time.Location) EmailMessage {
	when := evt.AppointmentTime.In(loc).Format("Monday, 2 January 2006 at 3:04 PM MST")
	clinicName := evt.ClinicName
	if clinicName == "" {
		clinicName = "your clinic"
	}

	var details []string
	if evt.Specialty != "" {
		details = append(details, "Specialty: "+evt.Specialty)
	}
	if evt.Urgency != "" {
		details = append(details, "Urgency: "+evt.Urgency)
	}

	body := fmt.Sprintf(`A new appointment was booked at %s.

When: %s
Status: %s
%sTriage summary: %s
Appointment ID: %s

Open the KlinikAI dashboard to review it.`,
		clinicName, when, evt.Status, joinLines(details), evt.TriageSummary, evt.AppointmentID)

	var rows strings.Builder
	writeRow := func(label, value string) {
		fmt.Fprintf(&rows, `<tr><td style="padding: 6px;"><strong>%s</strong></td><td style="padding: 6px;">%s</td></tr>`,
			html.EscapeString(label), html.EscapeString(value))
	}
	writeRow("When", when)
	writeRow("Status", evt.Status)
	if evt.Specialty != "" {
		writeRow("Specialty", evt.Specialty)
	}
	if evt.Urgency != "" {
		writeRow("Urgency", evt.Urgency)
	}
	writeRow("Triage summary", evt.TriageSummary)
	writeRow("Appointment ID", evt.AppointmentID)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>New appointment at %s</h2>
<table style="border-collapse: collapse;">%s</table>
<p style="color: #6b7280; font-size: 12px;">KlinikAI</p>
</div>`, html.EscapeString(clinicName), rows.String())

	return EmailMessage{
		To:       owner.Email,
		ToName:   owner.FullName,
		Subject:  fmt.Sprintf("New appointment at %s", clinicName),
		Body:     body,
		HTML:     htmlBody,
		Category: "appointment_booked",
		Tags: map[string]string{
			"appointment_id": evt.AppointmentID,
			"clinic_id":      evt.ClinicID,
		},
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// SenderConfig selects and configures the outbound email provider.
type SenderConfig struct {
	Provider  string // sendgrid, ses or none
	SendGrid  SendGridConfig
	SES       SESConfig
	SESClient *sesv2.Client
}

// NewSender returns the configured sender, falling back to the stub when
// the provider is unknown or missing credentials.
func NewSender(cfg SenderConfig, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "sendgrid":
		if s := NewSendGridSender(cfg.SendGrid, logger); s != nil {
			return s
		}
		logger.Warn("notify: sendgrid selected without API key, using stub sender")
	case "ses":
		if s := NewSESSender(cfg.SESClient, cfg.SES, logger); s != nil {
			return s
		}
		logger.Warn("notify: ses selected without AWS client, using stub sender")
	}
	return NewStubEmailSender(logger)
}
