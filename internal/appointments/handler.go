package appointments

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/klinikai/internal/clinics"
	"github.com/wolfman30/klinikai/internal/http/middleware"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// Handler serves booking and dashboard routes.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// BookResponse is returned by POST /api/book-appointment.
type BookResponse struct {
	Success     bool          `json:"success"`
	Appointment *Confirmation `json:"appointment"`
}

// Book handles POST /api/book-appointment.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode booking request", "error", err)
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	confirmation, err := h.service.Book(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, clinics.ErrClinicNotFound):
		h.jsonError(w, "Clinic not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidPatient):
		h.jsonError(w, "Invalid patientId", http.StatusBadRequest)
		return
	default:
		h.logger.Error("failed to create appointment", "clinic_id", req.ClinicID, "error", err)
		h.jsonError(w, "Failed to create appointment", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, BookResponse{Success: true, Appointment: confirmation})
}

// List handles GET /api/dashboard/appointments[?status=CONFIRMED,PENDING].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var filter ListFilter
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := ParseStatus(part)
			if err != nil {
				h.jsonError(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	appts, err := h.service.List(r.Context(), ownerID, filter)
	if err != nil {
		h.logger.Error("error fetching appointments", "owner_id", ownerID, "error", err)
		h.jsonError(w, "Failed to fetch appointments", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Export handles GET /api/dashboard/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Buffer so a query failure can still become a JSON error.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), ownerID, &buf); err != nil {
		h.logger.Error("export failed", "owner_id", ownerID, "error", err)
		h.jsonError(w, "Failed to fetch appointments", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write CSV response", "error", err)
	}
}

// UpdateStatusRequest is the body of PATCH /api/dashboard/appointments/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/dashboard/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	appointmentID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		h.jsonError(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), ownerID, appointmentID, status); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			h.jsonError(w, "Appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update appointment status", "appointment_id", appointmentID, "error", err)
		h.jsonError(w, "Failed to update appointment", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": appointmentID, "status": status})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, msg string, status int) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
