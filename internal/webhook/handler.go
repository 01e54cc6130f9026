// Package webhook receives inbound events from the voice provider: plain
// messages, call notifications, and booking intents.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/receptionly/platform/internal/appointments"
	"github.com/receptionly/platform/internal/business"
	"github.com/receptionly/platform/internal/customers"
	"github.com/receptionly/platform/internal/observability/metrics"
	"github.com/receptionly/platform/internal/tenancy"
	"github.com/receptionly/platform/internal/timeparse"
	"github.com/receptionly/platform/pkg/logging"
)

// Event types the provider sends.
const (
	EventMessage       = "message"
	EventCall          = "call"
	EventBookingIntent = "booking_intent"
)

// Intent types inside a booking_intent event.
const (
	IntentBook       = "book"
	IntentReschedule = "reschedule"
	IntentCancel     = "cancel"
	IntentInquiry    = "inquiry"
)

const (
	defaultService = "Appointment"
	slotShift      = 30 * time.Minute
	// maxShiftAttempts bounds the forward slot search to a four-hour
	// window before the handler gives up instead of double-booking.
	maxShiftAttempts = 8
)

// Payload is the provider webhook body.
type Payload struct {
	EventType       string            `json:"event_type"`
	Phone           string            `json:"phone"`
	Message         string            `json:"message,omitempty"`
	Intent          *Intent           `json:"intent,omitempty"`
	AgentID         string            `json:"agent_id,omitempty"`
	Timestamp       string            `json:"timestamp,omitempty"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
}

// Intent is the structured booking request inside a payload.
type Intent struct {
	Type          string `json:"type"`
	Service       string `json:"service,omitempty"`
	PreferredTime string `json:"preferred_time,omitempty"`
	PreferredDate string `json:"preferred_date,omitempty"`
}

// BusinessSource looks up the resolved tenant's record.
type BusinessSource interface {
	GetByID(ctx context.Context, id string) (*business.Business, error)
}

// MessageLog appends interaction rows for both directions.
type MessageLog interface {
	LogCall(ctx context.Context, businessID, customerID, content string, payload []byte) error
	LogOutbound(ctx context.Context, businessID, customerID, content string) error
}

// Config wires the handler's collaborators.
type Config struct {
	Resolver     *tenancy.Resolver
	Businesses   BusinessSource
	Customers    customers.Repository
	Messages     MessageLog
	Appointments appointments.Repository
	Metrics      *metrics.SyncMetrics
	Logger       *logging.Logger
	Now          func() time.Time
}

// Handler processes provider webhooks.
type Handler struct {
	resolver     *tenancy.Resolver
	businesses   BusinessSource
	customers    customers.Repository
	engine       *customers.Engine
	messages     MessageLog
	appointments appointments.Repository
	metrics      *metrics.SyncMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewHandler creates the webhook handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Resolver == nil || cfg.Businesses == nil || cfg.Customers == nil ||
		cfg.Messages == nil || cfg.Appointments == nil {
		panic("webhook: resolver, businesses, customers, messages and appointments are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		resolver:     cfg.Resolver,
		businesses:   cfg.Businesses,
		customers:    cfg.Customers,
		engine:       customers.NewEngine(cfg.Customers, cfg.Messages),
		messages:     cfg.Messages,
		appointments: cfg.Appointments,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          now,
	}
}

// Health handles GET: a liveness probe for the provider's webhook config.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "endpoint": "voice-webhook"})
}

// Receive handles POST: log the interaction, and on a book intent create
// the appointment. A booking intent is never silently dropped; internal
// failures surface as the error envelope with a 5xx status.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.metrics.ObserveWebhook("invalid", "rejected")
		writeError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	eventType := payload.EventType
	if eventType == "" {
		eventType = EventMessage
	}
	if payload.Phone == "" {
		h.metrics.ObserveWebhook(eventType, "rejected")
		writeError(w, http.StatusBadRequest, "phone is required", "")
		return
	}

	businessID, err := h.resolver.Resolve(r.Context(), payload.AgentID)
	if err != nil {
		if errors.Is(err, tenancy.ErrUnroutable) {
			h.metrics.ObserveWebhook(eventType, "unroutable")
			writeError(w, http.StatusNotFound, "no business found", payload.AgentID)
			return
		}
		h.logger.Error("tenant resolution failed", "agent_id", payload.AgentID, "error", err)
		h.metrics.ObserveWebhook(eventType, "error")
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}
	ctx := tenancy.WithBusinessID(r.Context(), businessID)

	biz, err := h.businesses.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			h.metrics.ObserveWebhook(eventType, "unroutable")
			writeError(w, http.StatusNotFound, "no business found", businessID)
			return
		}
		h.logger.Error("business lookup failed", "business_id", businessID, "error", err)
		h.metrics.ObserveWebhook(eventType, "error")
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		h.metrics.ObserveWebhook(eventType, "error")
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}
	customer, _, err := h.engine.ProcessCall(ctx, customers.ProcessCallParams{
		BusinessID: biz.ID,
		Phone:      payload.Phone,
		Transcript: payload.Message,
		Extracted:  payload.ExtractedFields,
		RawPayload: raw,
	})
	if err != nil {
		h.logger.Error("webhook upsert failed", "business_id", biz.ID, "phone", payload.Phone, "error", err)
		h.metrics.ObserveWebhook(eventType, "error")
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}

	if payload.Intent != nil && payload.Intent.Type == IntentBook {
		h.book(ctx, w, biz, customer, payload.Intent, eventType, started)
		return
	}

	h.metrics.ObserveWebhook(eventType, "logged")
	h.metrics.ObserveWebhookLatency(eventType, h.now().Sub(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"action":      "logged",
		"customer_id": customer.ID,
	})
}

func (h *Handler) book(ctx context.Context, w http.ResponseWriter, biz *business.Business, customer *customers.Customer, intent *Intent, eventType string, started time.Time) {
	loc := biz.Location()
	now := h.now().In(loc)

	start, ok := timeparse.Resolve(intent.PreferredDate, intent.PreferredTime, now)
	if !ok {
		// Default slot: tomorrow 10:00 in the business's timezone.
		tomorrow := now.AddDate(0, 0, 1)
		start = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, loc)
	}

	service := intent.Service
	if service == "" {
		service = defaultService
	}
	duration := biz.ServiceDuration(service)
	end := start.Add(duration)

	// Search forward in fixed steps until a genuinely free slot appears,
	// re-checking after every shift.
	free := false
	for attempt := 0; attempt <= maxShiftAttempts; attempt++ {
		conflict, err := h.appointments.HasConflict(ctx, biz.ID, start, end)
		if err != nil {
			h.logger.Error("conflict check failed", "business_id", biz.ID, "error", err)
			h.metrics.ObserveWebhook(eventType, "error")
			writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
			return
		}
		if !conflict {
			free = true
			break
		}
		start = start.Add(slotShift)
		end = end.Add(slotShift)
	}
	if !free {
		h.metrics.ObserveWebhook(eventType, "conflict")
		writeError(w, http.StatusConflict, "no free slot",
			fmt.Sprintf("no opening within %s of the requested time", time.Duration(maxShiftAttempts)*slotShift))
		return
	}

	appt := &appointments.Appointment{
		BusinessID: biz.ID,
		CustomerID: customer.ID,
		Service:    service,
		StartTime:  start,
		EndTime:    end,
		Status:     appointments.StatusPending,
	}
	if err := h.appointments.Create(ctx, appt); err != nil {
		h.logger.Error("appointment create failed", "business_id", biz.ID, "error", err)
		h.metrics.ObserveWebhook(eventType, "error")
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}

	if err := h.customers.SetLastAppointment(ctx, customer.ID, start); err != nil {
		h.logger.Warn("last-appointment update failed", "customer_id", customer.ID, "error", err)
	}

	confirmation := fmt.Sprintf("Great! I've booked your %s for %s at %s. See you then!",
		service, start.Format("Monday, January 2"), start.Format("3:04 PM"))
	if err := h.messages.LogOutbound(ctx, biz.ID, customer.ID, confirmation); err != nil {
		h.logger.Warn("confirmation log failed", "customer_id", customer.ID, "error", err)
	}

	h.logger.Info("appointment booked",
		"business_id", biz.ID, "customer_id", customer.ID,
		"service", service, "start", start)
	h.metrics.ObserveWebhook(eventType, "booked")
	h.metrics.ObserveWebhookLatency(eventType, h.now().Sub(started).Seconds())

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"action":  "booked",
		"appointment": map[string]any{
			"id":         appt.ID,
			"start_time": start.Format(time.RFC3339),
			"end_time":   end.Format(time.RFC3339),
			"service":    service,
		},
		"confirmation_message": confirmation,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}
