// Package triage holds the structured result the assistant produces when it
// maps patient symptoms to a specialty and urgency level.
package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Urgency ranks how soon a patient should be seen.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// Defaults applied when a booking arrives without a full triage result.
const (
	DefaultSpecialty    = "General"
	DefaultSummary      = "Patient consultation requested"
	DefaultInstructions = "Please arrive 15 minutes early for your appointment"
)

var (
	ErrInvalidUrgency    = errors.New("triage: urgency must be one of low, medium, high, emergency")
	ErrSpecialtyRequired = errors.New("triage: specialty is required")
)

// Urgencies lists the accepted urgency values in ascending order.
func Urgencies() []Urgency {
	return []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency}
}

// ParseUrgency normalizes raw input into an Urgency.
func ParseUrgency(raw string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(raw)))
	if !u.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidUrgency, raw)
	}
	return u, nil
}

// LooseUrgency is ParseUrgency for ranking inputs: anything that is not a
// known urgency comes back empty, which ranks as routine care.
func LooseUrgency(raw string) Urgency {
	u, err := ParseUrgency(raw)
	if err != nil {
		return ""
	}
	return u
}

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// Acute is true for urgencies that favour emergency centres and hospitals.
func (u Urgency) Acute() bool {
	return u == UrgencyHigh || u == UrgencyEmergency
}

// Result is the structured triage produced by the assistant.
type Result struct {
	IdentifiedSpecialty string  `json:"identifiedSpecialty"`
	Urgency             Urgency `json:"urgency"`
	SummaryForClinician string  `json:"summaryForClinician"`
	NextStepForPatient  string  `json:"nextStepForPatient"`
}

// Validate checks the fields the recommendation step depends on.
func (r Result) Validate() error {
	if strings.TrimSpace(r.IdentifiedSpecialty) == "" {
		return ErrSpecialtyRequired
	}
	if !r.Urgency.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidUrgency, r.Urgency)
	}
	return nil
}

// WithBookingDefaults fills any blank field with the booking defaults.
// An unrecognised urgency is replaced with medium.
func (r Result) WithBookingDefaults() Result {
	if strings.TrimSpace(r.IdentifiedSpecialty) == "" {
		r.IdentifiedSpecialty = DefaultSpecialty
	}
	if u, err := ParseUrgency(string(r.Urgency)); err == nil {
		r.Urgency = u
	} else {
		r.Urgency = UrgencyMedium
	}
	if strings.TrimSpace(r.SummaryForClinician) == "" {
		r.SummaryForClinician = DefaultSummary
	}
	if strings.TrimSpace(r.NextStepForPatient) == "" {
		r.NextStepForPatient = DefaultInstructions
	}
	return r
}

// Payload renders the result as the JSON stored alongside an appointment.
// A nil result stores an empty object.
func Payload(r *Result) json.RawMessage {
	if r == nil {
		return json.RawMessage(`{}`)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
