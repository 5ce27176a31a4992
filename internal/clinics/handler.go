package clinics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// Handler serves the recommendation endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a clinics handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RecommendRequest is the body of POST /api/clinic-recommendations.
type RecommendRequest struct {
	Specialty string `json:"specialty"`
	Urgency   string `json:"urgency"`
}

// Recommend handles POST /api/clinic-recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode recommendation request", "error", err)
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Specialty) == "" {
		h.jsonError(w, "Specialty is required", http.StatusBadRequest)
		return
	}

	urgency := triage.LooseUrgency(req.Urgency)
	if urgency == "" && strings.TrimSpace(req.Urgency) != "" {
		h.logger.Debug("unrecognised urgency, ranking as routine", "urgency", req.Urgency)
	}

	result, err := h.service.Recommend(r.Context(), req.Specialty, urgency)
	if err != nil {
		if errors.Is(err, ErrSpecialtyRequired) {
			h.jsonError(w, "Specialty is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to fetch clinics", "specialty", req.Specialty, "error", err)
		h.jsonError(w, "Failed to fetch clinics", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
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
