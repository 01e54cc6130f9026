package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/pkg/logging"
)

// BusinessSource looks up the business a trigger targets.
type BusinessSource interface {
	GetByID(ctx context.Context, id string) (*business.Business, error)
}

// Handler exposes the sync triggers over HTTP.
type Handler struct {
	svc        *Service
	businesses BusinessSource
	logger     *logging.Logger
}

// NewHandler creates the sync trigger handler.
func NewHandler(svc *Service, businesses BusinessSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, businesses: businesses, logger: logger}
}

type syncCallsRequest struct {
	BusinessID string `json:"business_id"`
	AgentID    string `json:"agent_id"`
	Since      string `json:"since"`
}

// SyncCalls handles POST /sync/calls: drain the feed for one business.
// The agent id defaults to the business's provisioned agent.
func (h *Handler) SyncCalls(w http.ResponseWriter, r *http.Request) {
	var req syncCallsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.BusinessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", "")
		return
	}

	since, err := parseSince(req.Since)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since timestamp", err.Error())
		return
	}

	agentID := req.AgentID
	if agentID == "" {
		biz, err := h.businesses.GetByID(r.Context(), req.BusinessID)
		if err != nil {
			if errors.Is(err, business.ErrNotFound) {
				writeError(w, http.StatusNotFound, "business not found", req.BusinessID)
				return
			}
			h.logger.Error("business lookup failed", "business_id", req.BusinessID, "error", err)
			writeError(w, http.StatusInternalServerError, "business lookup failed", err.Error())
			return
		}
		if biz.AgentID == "" {
			writeError(w, http.StatusConflict, "business has no provisioned agent", req.BusinessID)
			return
		}
		agentID = biz.AgentID
	}

	result, err := h.svc.SyncBusiness(r.Context(), req.BusinessID, agentID, since)
	if err != nil {
		h.logger.Error("business sync failed", "business_id", req.BusinessID, "error", err)
		writeError(w, http.StatusBadGateway, "sync failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type syncOrganizationRequest struct {
	Since string `json:"since"`
}

// SyncOrganization handles POST /sync/organization: drain the whole feed
// and route every call to its business.
func (h *Handler) SyncOrganization(w http.ResponseWriter, r *http.Request) {
	var req syncOrganizationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	since, err := parseSince(req.Since)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since timestamp", err.Error())
		return
	}

	result, err := h.svc.SyncOrganization(r.Context(), since)
	if err != nil {
		h.logger.Error("organization sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "sync failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type backfillRequest struct {
	BusinessID string `json:"business_id"`
}

// BackfillTranscripts handles POST /sync/transcripts/backfill.
func (h *Handler) BackfillTranscripts(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.BusinessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", "")
		return
	}

	result, err := h.svc.BackfillTranscripts(r.Context(), req.BusinessID)
	if err != nil {
		h.logger.Error("transcript backfill failed", "business_id", req.BusinessID, "error", err)
		writeError(w, http.StatusBadGateway, "backfill failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
