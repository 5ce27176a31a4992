package events

import "time"

const EventTypeAppointmentBooked = "appointments.appointment.booked.v1"

// AppointmentBookedV1 is emitted after an appointment row is committed.
type AppointmentBookedV1 struct {
	AppointmentID   string    `json:"appointment_id"`
	ClinicID        string    `json:"clinic_id"`
	ClinicName      string    `json:"clinic_name"`
	PatientID       string    `json:"patient_id"`
	Status          string    `json:"status"`
	Specialty       string    `json:"specialty,omitempty"`
	Urgency         string    `json:"urgency,omitempty"`
	TriageSummary   string    `json:"triage_summary"`
	AppointmentTime time.Time `json:"appointment_time"`
	BookedAt        time.Time `json:"booked_at"`
}

func (AppointmentBookedV1) EventType() string { return EventTypeAppointmentBooked }

// Aggregate keys booked events by clinic.
func (e AppointmentBookedV1) Aggregate() string { return "clinic:" + e.ClinicID }
