package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/assistant"
	"github.com/wolfman30/klinikai/internal/clinics"
	httpmiddleware "github.com/wolfman30/klinikai/internal/http/middleware"
	"github.com/wolfman30/klinikai/pkg/logging"
)

const (
	testSecret  = "router-secret"
	testOwnerID = "5b0e1a9c-6d43-4c2e-8f1a-1a2b3c4d5e6f"
)

type stubClinicRepo struct{}

func (stubClinicRepo) FindBySpecialty(_ context.Context, specialty string, _ int) ([]clinics.Clinic, error) {
	if specialty != "Cardiology" {
		return nil, nil
	}
	return []clinics.Clinic{{ID: "8", Name: "Hospital Ampang", Address: "Jalan Mewah"}}, nil
}

func (stubClinicRepo) GetByID(_ context.Context, id string) (*clinics.Clinic, error) {
	if id != "8" {
		return nil, clinics.ErrClinicNotFound
	}
	return &clinics.Clinic{ID: "8", Name: "Hospital Ampang"}, nil
}

func (stubClinicRepo) OwnerContact(context.Context, string) (*clinics.OwnerContact, error) {
	return nil, clinics.ErrClinicNotFound
}

type stubAppointmentRepo struct{}

func (stubAppointmentRepo) Insert(_ context.Context, appt *appointments.Appointment) (*appointments.Appointment, error) {
	out := *appt
	out.CreatedAt = time.Now()
	return &out, nil
}

type stubDashboard struct{ gotOwner string }

func (s *stubDashboard) ListForOwner(_ context.Context, ownerID string, _ appointments.ListFilter) ([]appointments.DashboardAppointment, error) {
	s.gotOwner = ownerID
	return []appointments.DashboardAppointment{{ID: "a-1", Status: appointments.StatusConfirmed}}, nil
}

func (s *stubDashboard) ExportForOwner(context.Context, string) ([]appointments.ExportRow, error) {
	return nil, nil
}

func (s *stubDashboard) UpdateStatusForOwner(context.Context, string, string, appointments.Status) error {
	return appointments.ErrAppointmentNotFound
}

type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, req assistant.LLMRequest) (assistant.LLMResponse, error) {
	return assistant.LLMResponse{Text: "echo: " + req.Messages[len(req.Messages)-1].Content}, nil
}

type testDeps struct {
	router    http.Handler
	dashboard *stubDashboard
	limiter   *httpmiddleware.RateLimiter
}

func newTestRouter(t *testing.T, health *HealthHandler) testDeps {
	t.Helper()
	logger := logging.Default()

	clinicSvc := clinics.NewService(stubClinicRepo{}, logger)
	dash := &stubDashboard{}
	apptSvc := appointments.NewService(stubAppointmentRepo{}, clinicSvc, logger, appointments.WithDashboard(dash))
	toolbox := assistant.NewToolbox(clinicSvc, apptSvc, time.UTC, logger)
	agent := assistant.NewAgent(echoLLM{}, toolbox, logger)

	limiter := httpmiddleware.NewRateLimiter(1000, 1000)
	t.Cleanup(limiter.Stop)

	reg := prometheus.NewRegistry()
	return testDeps{
		router: New(&Config{
			Logger:              logger,
			ClinicsHandler:      clinics.NewHandler(clinicSvc, logger),
			AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
			ChatHandler:         assistant.NewHandler(agent, logger),
			Health:              health,
			MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			CORSAllowedOrigins:  []string{"https://app.klinikai.my"},
			RateLimiter:         limiter,
			DashboardJWTSecret:  testSecret,
		}),
		dashboard: dash,
		limiter:   limiter,
	}
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestRouterHealthEndpoint(t *testing.T) {
	deps := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
}

func TestRouterHealthDegraded(t *testing.T) {
	health := NewHealthHandler(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	deps := newTestRouter(t, health)

	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected health body %#v", resp)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	deps := newTestRouter(t, nil)
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
}

func TestRouterClinicRecommendations(t *testing.T) {
	deps := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/clinic-recommendations",
		strings.NewReader(`{"specialty":"Cardiology","urgency":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp clinics.RecommendationResult
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Clinics[0].ID != "8" {
		t.Fatalf("unexpected recommendations %#v", resp)
	}
}

func TestRouterBookAppointment(t *testing.T) {
	deps := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/book-appointment", strings.NewReader(`{"clinicId":"8"}`))
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/book-appointment", strings.NewReader(`{"clinicId":"404"}`))
	rr = httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown clinic, got %d", rr.Code)
	}
}

func TestRouterChat(t *testing.T) {
	deps := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","parts":[{"type":"text","text":"hello"}]}]}`))
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp assistant.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "echo: hello" {
		t.Fatalf("unexpected chat response %q", resp.Response)
	}
}

func TestRouterDashboardRequiresToken(t *testing.T) {
	deps := newTestRouter(t, nil)

	for _, target := range []string{"/api/dashboard/appointments", "/api/dashboard/export"} {
		rr := httptest.NewRecorder()
		deps.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", target, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testOwnerID))
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}
	if deps.dashboard.gotOwner != testOwnerID {
		t.Fatalf("expected owner %q, got %q", testOwnerID, deps.dashboard.gotOwner)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/dashboard/appointments/9d2f5c1e-0000-4000-8000-000000000001/status",
		strings.NewReader(`{"status":"COMPLETED"}`))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testOwnerID))
	rr = httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign appointment, got %d", rr.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	deps := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.klinikai.my")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	deps.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.klinikai.my" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRouterRateLimitsAPIOnly(t *testing.T) {
	logger := logging.Default()
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Stop)
	clinicSvc := clinics.NewService(stubClinicRepo{}, logger)
	r := New(&Config{
		ClinicsHandler: clinics.NewHandler(clinicSvc, logger),
		RateLimiter:    limiter,
	})

	send := func(method, target, body string) int {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send(http.MethodPost, "/api/clinic-recommendations", `{"specialty":"Cardiology"}`); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := send(http.MethodPost, "/api/clinic-recommendations", `{"specialty":"Cardiology"}`); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
	for i := 0; i < 3; i++ {
		if code := send(http.MethodGet, "/health", ""); code != http.StatusOK {
			t.Fatalf("health should not be rate limited, got %d", code)
		}
	}
}
