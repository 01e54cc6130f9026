package onboarding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/pkg/logging"
)

// Handler exposes onboarding over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates the onboarding handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateBusiness handles POST /onboarding/businesses.
func (h *Handler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	biz, err := h.svc.Onboard(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrOwnerExists):
			writeError(w, http.StatusConflict, "owner already has a business", req.OwnerEmail)
		case errors.Is(err, business.ErrAgentTaken):
			writeError(w, http.StatusConflict, "agent already assigned", "")
		case req.Validate() != nil:
			writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		default:
			h.logger.Error("onboarding failed", "business_name", req.BusinessName, "error", err)
			writeError(w, http.StatusBadGateway, "onboarding failed", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "business": biz})
}

// GetBusiness handles GET /onboarding/businesses?email=.
func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required", "")
		return
	}

	biz, err := h.svc.GetByOwnerEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			writeError(w, http.StatusNotFound, "business not found", email)
			return
		}
		h.logger.Error("business lookup failed", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "business": biz})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
