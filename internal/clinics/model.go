// Package clinics finds clinics offering a specialty and ranks them for a
// patient's urgency.
package clinics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/klinikai/internal/triage"
)

var (
	// ErrClinicNotFound is returned when a clinic id has no row.
	ErrClinicNotFound = errors.New("clinic not found")
)

// ID is a clinic's bigserial key. Numeric ids are written as JSON numbers;
// either a string or a number is accepted on input.
type ID string

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return strconv.AppendInt(nil, n, 10), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("clinic id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("clinic id must be an integer: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Clinic is a row of the clinics table.
type Clinic struct {
	ID        ID       `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	OwnerID   string   `json:"-"`
}

// Type is the coarse kind of facility, derived from its name.
type Type string

const (
	TypeEmergency  Type = "emergency"
	TypeHospital   Type = "hospital"
	TypeSpecialist Type = "specialist"
	TypeClinic     Type = "clinic"
)

// Recommendation is a clinic annotated for a specific specialty/urgency.
type Recommendation struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Specialties []string `json:"specialties"`
	Type        Type     `json:"type"`
	Priority    int      `json:"priority"`
}

// RecommendationResult is the payload returned by the recommendation endpoint.
type RecommendationResult struct {
	Clinics   []Recommendation `json:"clinics"`
	Urgency   triage.Urgency   `json:"urgency,omitempty"`
	Specialty string           `json:"specialty,omitempty"`
	Total     int              `json:"total"`
	Message   string           `json:"message,omitempty"`
}

// Top returns the first recommendation, if any.
func (r *RecommendationResult) Top() (Recommendation, bool) {
	if r == nil || len(r.Clinics) == 0 {
		return Recommendation{}, false
	}
	return r.Clinics[0], true
}

func noClinicsMessage(specialty string) string {
	return fmt.Sprintf("No clinics found offering %s services. Please try a General Practitioner for referral.", specialty)
}
