// Package appointments implements the booking book: scheduled visits with
// conflict detection over half-open time intervals.
package appointments

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusCancelled    Status = "cancelled"
	StatusReminderSent Status = "reminder-sent"
)

// Appointment is one scheduled visit. The interval is half-open:
// [StartTime, EndTime). Back-to-back bookings sharing a boundary do not
// conflict.
type Appointment struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	CustomerID string    `json:"customer_id"`
	Service    string    `json:"service"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
