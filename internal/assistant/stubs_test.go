package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/triage"
)

// scriptedLLM returns its responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []LLMResponse
	err       error
	requests  []LLMRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return LLMResponse{Text: "done"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type stubRecommender struct {
	result       *clinics.RecommendationResult
	err          error
	gotSpecialty string
	gotUrgency   triage.Urgency
}

func (s *stubRecommender) Recommend(_ context.Context, specialty string, urgency triage.Urgency) (*clinics.RecommendationResult, error) {
	s.gotSpecialty, s.gotUrgency = specialty, urgency
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubBooker struct {
	err error
	got *appointments.BookingRequest
}

var bookedAt = time.Date(2026, 10, 17, 1, 0, 0, 0, time.UTC)

func (s *stubBooker) Book(_ context.Context, req appointments.BookingRequest) (*appointments.Confirmation, error) {
	s.got = &req
	if s.err != nil {
		return nil, s.err
	}
	return &appointments.Confirmation{
		ID:              "6f1c1a8e-3a4b-4c1e-9d5e-2a1b3c4d5e6f",
		Clinic:          "Hospital Ampang",
		AppointmentTime: bookedAt,
		Instructions:    req.TriageResult.NextStepForPatient,
	}, nil
}

func sampleRecommendations() *clinics.RecommendationResult {
	return &clinics.RecommendationResult{
		Clinics: []clinics.Recommendation{
			{ID: "8", Name: "Hospital Ampang", Type: clinics.TypeHospital, Priority: 55},
			{ID: "3", Name: "Klinik Dr. Tan", Type: clinics.TypeClinic, Priority: 45},
		},
		Total: 2,
	}
}

func call(name string, args any) ToolCall {
	raw, _ := json.Marshal(args)
	return ToolCall{ID: "call-" + name, Name: name, Args: raw}
}

func decode(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}

var errLLM = errors.New("model unavailable")

func klLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		return time.FixedZone("MYT", 8*3600)
	}
	return loc
}
