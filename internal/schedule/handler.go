package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// Handler exposes read-only catalog and appointment lookups.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a schedule handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("schedule: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.repo.ListServices(r.Context())
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		http.Error(w, "Failed to list services", http.StatusInternalServerError)
		return
	}
	if services == nil {
		services = []Service{}
	}
	h.writeJSON(w, http.StatusOK, services)
}

// GetAppointment handles GET /appointments/{appointmentID}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "appointmentID"))
	if id == "" {
		http.Error(w, "appointment id required", http.StatusBadRequest)
		return
	}
	appt, err := h.repo.GetAppointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load appointment", "appointment_id", id, "error", err)
		http.Error(w, "Failed to load appointment", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
