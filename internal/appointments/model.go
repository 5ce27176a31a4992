// Package appointments books clinic appointments from a triage result and
// serves the clinic-owner dashboard.
package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/triage"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidStatus       = errors.New("status must be one of PENDING, CONFIRMED, COMPLETED, CANCELLED")
	ErrInvalidPatient      = errors.New("patientId must be a UUID")
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts any casing.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidStatus, raw)
}

// Appointment is a row of the appointments table.
type Appointment struct {
	ID                  string
	PatientID           string
	ClinicID            string
	AppointmentTime     time.Time
	Status              Status
	TriageSummary       string
	PatientInstructions string
	TriagePayload       json.RawMessage
	CreatedAt           time.Time
}

// ClinicID accepts a clinic id sent either as a JSON string or number.
type ClinicID = clinics.ID

// BookingRequest is the body of POST /api/book-appointment.
type BookingRequest struct {
	ClinicID     ClinicID       `json:"clinicId"`
	PatientID    string         `json:"patientId,omitempty"`
	TriageResult *triage.Result `json:"triageResult,omitempty"`
	// TriageRaw is the triageResult object exactly as the client sent it,
	// including fields Result does not model. It is what gets stored.
	TriageRaw json.RawMessage `json:"-"`
}

func (r *BookingRequest) UnmarshalJSON(data []byte) error {
	type plain BookingRequest
	aux := struct {
		*plain
		Triage json.RawMessage `json:"triageResult"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.TriageResult, r.TriageRaw = nil, nil
	if len(aux.Triage) == 0 || string(aux.Triage) == "null" {
		return nil
	}
	var result triage.Result
	if err := json.Unmarshal(aux.Triage, &result); err != nil {
		return fmt.Errorf("triageResult: %w", err)
	}
	r.TriageResult = &result
	r.TriageRaw = aux.Triage
	return nil
}

// triagePayload is the JSON stored in triage_payload: the raw request
// object when there is one, otherwise the parsed result.
func (r BookingRequest) triagePayload() json.RawMessage {
	if r.TriageResult != nil && len(r.TriageRaw) > 0 {
		return r.TriageRaw
	}
	return triage.Payload(r.TriageResult)
}

// Confirmation is returned to the patient after a successful booking.
type Confirmation struct {
	ID              string    `json:"id"`
	Clinic          string    `json:"clinic"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Instructions    string    `json:"instructions"`
}

// ClinicRef and PatientRef are the nested objects of a dashboard row.
type ClinicRef struct {
	ID   clinics.ID `json:"id"`
	Name string     `json:"name"`
}

type PatientRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// DashboardAppointment is one row of the owner's dashboard.
type DashboardAppointment struct {
	ID              string     `json:"id"`
	AppointmentTime time.Time  `json:"appointmentTime"`
	Status          Status     `json:"status"`
	TriageSummary   string     `json:"triageSummary"`
	Clinic          ClinicRef  `json:"clinic"`
	Patient         PatientRef `json:"patient"`
}

// ExportRow is one line of the CSV export.
type ExportRow struct {
	ID              string
	PatientName     string
	AppointmentTime time.Time
	Status          Status
	ClinicName      string
	TriageSummary   string
	CreatedAt       time.Time
}

// ListFilter narrows the dashboard list.
type ListFilter struct {
	Statuses []Status
}

const (
	unknownPatientDashboard = "Unknown Patient"
	unknownPatientExport    = "Unknown"
)
