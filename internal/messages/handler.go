package messages

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/receptionly/platform/pkg/logging"
)

// Handler serves interaction-log reads for the dashboard.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates the messages handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type historyResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

// History handles GET /messages?business_id=&customer_id=&limit=: one
// customer's conversation, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	customerID := r.URL.Query().Get("customer_id")
	if businessID == "" || customerID == "" {
		writeError(w, http.StatusBadRequest, "business_id and customer_id are required", "")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
	}

	out, err := h.store.ListForCustomer(r.Context(), businessID, customerID, limit)
	if err != nil {
		h.logger.Error("message history failed", "business_id", businessID, "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "history failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: out, Count: len(out)})
}

type statsResponse struct {
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
	Total    int `json:"total"`
}

// Stats handles GET /messages/stats?business_id=: the per-direction volume
// counters on the dashboard overview.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", "")
		return
	}

	inbound, outbound, err := h.store.CountForBusiness(r.Context(), businessID)
	if err != nil {
		h.logger.Error("message stats failed", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "stats failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Inbound: inbound, Outbound: outbound, Total: inbound + outbound})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
