package customers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/receptionly/platform/pkg/logging"
)

// Handler serves customer reads for the dashboard.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates the customers handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type listResponse struct {
	Customers []*Customer `json:"customers"`
	Count     int         `json:"count"`
}

// List handles GET /customers?business_id=&limit= and, with since=, the
// new-customer polling variant the dashboard uses for call notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", "")
		return
	}

	var (
		out []*Customer
		err error
	)
	if sinceRaw := r.URL.Query().Get("since"); sinceRaw != "" {
		since, parseErr := time.Parse(time.RFC3339, sinceRaw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp", parseErr.Error())
			return
		}
		out, err = h.repo.ListCreatedSince(r.Context(), businessID, since)
	} else {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit", raw)
				return
			}
		}
		out, err = h.repo.ListRecent(r.Context(), businessID, limit)
	}
	if err != nil {
		h.logger.Error("customer list failed", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "list failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Customers: out, Count: len(out)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
