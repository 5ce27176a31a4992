package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

const (
	ToolTriagePatient            = "triagePatient"
	ToolGetClinicRecommendations = "getClinicRecommendations"
	ToolBookAppointment          = "bookAppointment"
)

// Recommender finds ranked clinics for a specialty.
type Recommender interface {
	Recommend(ctx context.Context, specialty string, urgency triage.Urgency) (*clinics.RecommendationResult, error)
}

// Booker creates appointments.
type Booker interface {
	Book(ctx context.Context, req appointments.BookingRequest) (*appointments.Confirmation, error)
}

// Toolbox executes the agent's tools against the in-process services.
type Toolbox struct {
	recommender Recommender
	booker      Booker
	location    *time.Location
	logger      *logging.Logger
}

// NewToolbox wires the tools to the recommendation and booking services.
// Times in tool messages are shown in loc.
func NewToolbox(recommender Recommender, booker Booker, loc *time.Location, logger *logging.Logger) *Toolbox {
	if recommender == nil || booker == nil {
		panic("assistant: recommender and booker required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Toolbox{recommender: recommender, booker: booker, location: loc, logger: logger}
}

// Specs declares the tools, taking descriptions from the prompt.
func (t *Toolbox) Specs(prompt *Prompt) []ToolSpec {
	urgencies := make([]string, 0, 4)
	for _, u := range triage.Urgencies() {
		urgencies = append(urgencies, string(u))
	}
	str := func(desc string) *Schema { return &Schema{Type: "string", Description: desc} }

	return []ToolSpec{
		{
			Name:        ToolTriagePatient,
			Description: prompt.ToolDescription(ToolTriagePatient),
			Parameters: &Schema{
				Type: "object",
				Properties: map[string]*Schema{
					"identifiedSpecialty": str(`e.g., "ENT", "Cardiology", "General Practitioner"`),
					"urgency":             {Type: "string", Enum: urgencies},
					"summaryForClinician": str("A concise, clinical summary of the user's symptoms."),
					"nextStepForPatient":  str("A simple, one-sentence instruction for the user."),
				},
				Required: []string{"identifiedSpecialty", "urgency", "summaryForClinician", "nextStepForPatient"},
			},
		},
		{
			Name:        ToolGetClinicRecommendations,
			Description: prompt.ToolDescription(ToolGetClinicRecommendations),
			Parameters: &Schema{
				Type: "object",
				Properties: map[string]*Schema{
					"specialty": str("Medical specialty from triage"),
					"urgency":   {Type: "string", Description: "Urgency from triage", Enum: urgencies},
				},
				Required: []string{"specialty", "urgency"},
			},
		},
		{
			Name:        ToolBookAppointment,
			Description: prompt.ToolDescription(ToolBookAppointment),
			Parameters: &Schema{
				Type: "object",
				Properties: map[string]*Schema{
					"clinicId":            str("The EXACT numeric ID of the chosen clinic from previous getClinicRecommendations response (e.g., '8', not clinic name)"),
					"clinicName":          str("The name of the chosen clinic"),
					"specialty":           str("The medical specialty"),
					"urgency":             str("The urgency level"),
					"summaryForClinician": str("Clinical summary"),
					"nextStepForPatient":  str("Patient instructions"),
				},
				Required: []string{"clinicId"},
			},
		},
	}
}

// Execute runs one tool call. Failures are reported inside the result so
// the model can explain them to the patient.
func (t *Toolbox) Execute(ctx context.Context, call ToolCall) (ToolResult, bool) {
	var (
		body    map[string]any
		success bool
	)
	switch call.Name {
	case ToolTriagePatient:
		body, success = t.triagePatient(call.Args)
	case ToolGetClinicRecommendations:
		body, success = t.recommend(ctx, call.Args)
	case ToolBookAppointment:
		body, success = t.book(ctx, call.Args)
	default:
		body = map[string]any{"success": false, "error": fmt.Sprintf("unknown tool %q", call.Name)}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		raw = json.RawMessage(`{"success":false,"error":"failed to encode tool result"}`)
		success = false
	}
	return ToolResult{CallID: call.ID, Name: call.Name, Content: raw}, success
}

func (t *Toolbox) triagePatient(args json.RawMessage) (map[string]any, bool) {
	var result triage.Result
	if err := json.Unmarshal(args, &result); err != nil {
		return failure("invalid triage arguments: "+err.Error(), ""), false
	}
	if u, err := triage.ParseUrgency(string(result.Urgency)); err == nil {
		result.Urgency = u
	}
	if err := result.Validate(); err != nil {
		return failure(err.Error(), ""), false
	}

	t.logger.Info("triage result", "specialty", result.IdentifiedSpecialty, "urgency", result.Urgency)
	return map[string]any{
		"success":      true,
		"specialty":    result.IdentifiedSpecialty,
		"urgency":      result.Urgency,
		"summary":      result.SummaryForClinician,
		"instructions": result.NextStepForPatient,
		"message": fmt.Sprintf("✅ Analysis complete: %s specialty, %s urgency - NOW FIND CLINICS",
			result.IdentifiedSpecialty, result.Urgency),
	}, true
}

type recommendArgs struct {
	Specialty string `json:"specialty"`
	Urgency   string `json:"urgency"`
}

func (t *Toolbox) recommend(ctx context.Context, raw json.RawMessage) (map[string]any, bool) {
	const (
		errMsg  = "Failed to get clinic recommendations"
		userMsg = "I apologize, but I couldn't retrieve clinic recommendations at the moment. Please try again."
	)

	var args recommendArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(errMsg, userMsg), false
	}
	urgency := triage.LooseUrgency(args.Urgency)

	t.logger.Info("getting clinic recommendations", "specialty", args.Specialty, "urgency", urgency)
	result, err := t.recommender.Recommend(ctx, args.Specialty, urgency)
	if err != nil {
		t.logger.Error("clinic recommendation tool failed", "specialty", args.Specialty, "error", err)
		return failure(errMsg, userMsg), false
	}

	body := map[string]any{
		"success": true,
		"clinics": result.Clinics,
		"count":   len(result.Clinics),
	}
	var topName string
	if len(result.Clinics) > 0 {
		top := result.Clinics[0]
		body["topClinicId"] = top.ID
		body["topClinicName"] = top.Name
		topName = fmt.Sprintf("%s (ID: %s)", top.Name, top.ID)
	}
	body["message"] = fmt.Sprintf("✅ Found %d %s clinics. TOP RECOMMENDATION: %s - PRESENT OPTIONS TO USER NOW",
		len(result.Clinics), args.Specialty, topName)
	return body, true
}

type bookArgs struct {
	ClinicID            appointments.ClinicID `json:"clinicId"`
	ClinicName          string                `json:"clinicName"`
	Specialty           string                `json:"specialty"`
	Urgency             string                `json:"urgency"`
	SummaryForClinician string                `json:"summaryForClinician"`
	NextStepForPatient  string                `json:"nextStepForPatient"`
}

func (t *Toolbox) book(ctx context.Context, raw json.RawMessage) (map[string]any, bool) {
	const userMsg = "I apologize, but I couldn't book the appointment at the moment. Please try calling the clinic directly."

	var args bookArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure("invalid booking arguments: "+err.Error(), userMsg), false
	}

	result := triage.Result{
		IdentifiedSpecialty: args.Specialty,
		Urgency:             triage.Urgency(args.Urgency),
		SummaryForClinician: args.SummaryForClinician,
		NextStepForPatient:  args.NextStepForPatient,
	}.WithBookingDefaults()

	t.logger.Info("booking appointment for clinic", "clinic_id", string(args.ClinicID), "clinic_name", args.ClinicName)
	conf, err := t.booker.Book(ctx, appointments.BookingRequest{
		ClinicID:     args.ClinicID,
		TriageResult: &result,
	})
	if err != nil {
		t.logger.Error("booking tool failed", "clinic_id", string(args.ClinicID), "error", err)
		return failure(bookingError(err), userMsg), false
	}

	when := conf.AppointmentTime.In(t.location).Format("2 January 2006, 3:04 PM")
	return map[string]any{
		"success":         true,
		"appointmentId":   conf.ID,
		"clinic":          conf.Clinic,
		"appointmentTime": conf.AppointmentTime,
		"instructions":    conf.Instructions,
		"message":         fmt.Sprintf("✅ Appointment successfully booked at %s for %s", conf.Clinic, when),
	}, true
}

// bookingError mirrors the messages of the booking endpoint.
func bookingError(err error) string {
	switch {
	case errors.Is(err, clinics.ErrClinicNotFound):
		return "Clinic not found"
	case errors.Is(err, appointments.ErrInvalidPatient):
		return "Invalid patientId"
	default:
		return "Failed to create appointment"
	}
}

func failure(errText, message string) map[string]any {
	out := map[string]any{"success": false, "error": errText}
	if message != "" {
		out["message"] = message
	}
	return out
}
