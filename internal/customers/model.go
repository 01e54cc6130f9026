// Package customers implements the per-business customer book: find-or-create
// keyed by phone number with additive custom-field merging.
package customers

import "time"

// Default names used when a call never captured who was speaking.
const (
	DefaultFirstName = "New"
	DefaultLastName  = "Customer"
)

// Customer is one caller known to a business. PhoneNumber is the natural
// key: one row per (business, phone) pair.
type Customer struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"business_id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	PhoneNumber     string            `json:"phone_number"`
	Email           string            `json:"email,omitempty"`
	AppointmentTime string            `json:"appointment_time,omitempty"`
	Month           string            `json:"month,omitempty"`
	Day             string            `json:"day,omitempty"`
	CustomFields    map[string]string `json:"custom_fields"`
	LastCallID      string            `json:"last_call_id,omitempty"`
	Transcript      string            `json:"call_transcript,omitempty"`
	LastAppointment *time.Time        `json:"last_appointment,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// UpsertParams carries one call's contribution to a customer record.
// Universal values only replace stored ones when non-empty; custom fields
// merge additively with new keys winning.
type UpsertParams struct {
	BusinessID string
	Phone      string
	Universal  map[string]string
	Custom     map[string]string
	CallID     string
}

func (p UpsertParams) universal(key string) string {
	return p.Universal[key]
}

// FirstName returns the proposed first name, if any.
func (p UpsertParams) FirstName() string { return p.universal(FieldFirstName) }

// LastName returns the proposed last name, if any.
func (p UpsertParams) LastName() string { return p.universal(FieldLastName) }

// Email returns the proposed email, if any.
func (p UpsertParams) Email() string { return p.universal(FieldEmail) }

// AppointmentTime returns the spoken appointment time, if any.
func (p UpsertParams) AppointmentTime() string { return p.universal(FieldAppointmentTime) }

// Month returns the spoken month, if any.
func (p UpsertParams) Month() string { return p.universal(FieldMonth) }

// Day returns the spoken day, if any.
func (p UpsertParams) Day() string { return p.universal(FieldDay) }
