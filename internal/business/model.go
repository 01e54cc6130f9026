// Package business holds the tenant model: every customer, message and
// appointment in the system is scoped to a business.
package business

import (
	"strings"
	"time"
)

// DefaultServiceDurationMins applies when a booking names a service the
// catalog does not know.
const DefaultServiceDurationMins = 30

// Service is one entry in a business's service catalog.
type Service struct {
	Name         string  `json:"name"`
	DurationMins int     `json:"duration"`
	Price        float64 `json:"price"`
}

// DayHours is the working window for a single weekday, "HH:MM" 24-hour.
type DayHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Off   bool   `json:"off,omitempty"`
}

// WorkHours maps lowercase weekday names to their hours.
type WorkHours map[string]DayHours

// Business is the tenant record. AgentID stays empty until voice-agent
// provisioning completes; only configured businesses are routable.
type Business struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"business_name"`
	OwnerName       string    `json:"owner_name"`
	OwnerEmail      string    `json:"owner_email"`
	PhoneNumber     string    `json:"phone_number,omitempty"`
	AgentID         string    `json:"agent_id,omitempty"`
	AgentUserID     string    `json:"agent_user_id,omitempty"`
	Timezone        string    `json:"timezone"`
	WorkHours       WorkHours `json:"work_hours"`
	Services        []Service `json:"services"`
	StartingMessage string    `json:"starting_message,omitempty"`
	AgentPrompt     string    `json:"agent_prompt,omitempty"`
	VoiceID         string    `json:"voice_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Ref is the summary the agent directory hands out per routed call.
type Ref struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"business_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Ref returns the routing summary for b.
func (b *Business) Ref() Ref {
	return Ref{ID: b.ID, Name: b.Name, Slug: b.Slug, PhoneNumber: b.PhoneNumber}
}

// ServiceNamed finds a catalog entry by case-insensitive exact name match.
func (b *Business) ServiceNamed(name string) (Service, bool) {
	for _, svc := range b.Services {
		if strings.EqualFold(svc.Name, name) {
			return svc, true
		}
	}
	return Service{}, false
}

// ServiceDuration returns the booked duration for a named service, falling
// back to the default when the catalog has no entry.
func (b *Business) ServiceDuration(name string) time.Duration {
	if svc, ok := b.ServiceNamed(name); ok && svc.DurationMins > 0 {
		return time.Duration(svc.DurationMins) * time.Minute
	}
	return DefaultServiceDurationMins * time.Minute
}

// Location resolves the business timezone, defaulting to UTC when the zone
// is unset or unknown.
func (b *Business) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Slugify normalizes a display name into the business_name lookup key.
func Slugify(name string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}

// DefaultWorkHours mirrors the onboarding defaults: weekdays 9-5, short
// Saturday, closed Sunday.
func DefaultWorkHours() WorkHours {
	weekday := DayHours{Start: "09:00", End: "17:00"}
	return WorkHours{
		"monday":    weekday,
		"tuesday":   weekday,
		"wednesday": weekday,
		"thursday":  weekday,
		"friday":    weekday,
		"saturday":  {Start: "10:00", End: "14:00"},
		"sunday":    {Start: "00:00", End: "00:00", Off: true},
	}
}

// DefaultServices seeds a new business catalog.
func DefaultServices() []Service {
	return []Service{
		{Name: "Consultation", DurationMins: 30, Price: 0},
		{Name: "Standard Service", DurationMins: 60, Price: 50},
	}
}
