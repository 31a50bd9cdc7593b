package scheduler

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Scheduling errors surfaced to callers.
var (
	ErrNotFound         = errors.New("appointment not found")
	ErrSlotUnavailable  = errors.New("time slot is not available")
	ErrAlreadyCancelled = errors.New("appointment already cancelled")
)

// TimeSlot is a bookable calendar interval. A slot is available iff no
// live appointment references it; slots are keyed by their start time.
type TimeSlot struct {
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	Available bool      `json:"is_available"`
	BookingID string    `json:"booking_id,omitempty"`
}

// Appointment is a booked meeting between a lead and a realtor.
// Cancellation is terminal; records are never deleted.
type Appointment struct {
	ID            string      `json:"id"`
	LeadID        string      `json:"lead_id"`
	RealtorID     string      `json:"realtor_id"`
	Start         time.Time   `json:"start_time"`
	End           time.Time   `json:"end_time"`
	Type          string      `json:"type"`
	Location      string      `json:"location"`
	Status        Status      `json:"status"`
	Notes         string      `json:"notes,omitempty"`
	RemindersSent []time.Time `json:"reminders_sent,omitempty"`
}

// Reminder is the payload returned by SendReminder.
type Reminder struct {
	Content     string            `json:"content"`
	GeneratedAt time.Time         `json:"generated_at"`
	Metadata    map[string]string `json:"metadata"`
}
