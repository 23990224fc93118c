package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types appended by the platform.
const (
	TypeBookingConfirmation  = "booking-confirmation"
	TypeTurnApproaching      = "turn-approaching"
	TypeTurnNow              = "turn-now"
	TypeAppointmentCancelled = "appointment-cancelled"
	TypeSystemAlert          = "system-alert"
)

// Notification maps to the notification table. It is a durable log entry;
// real-time delivery happens separately over the WebSocket channel.
type Notification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Type          string     `db:"type" json:"type"`
	Message       string     `db:"message" json:"message"`
	Read          bool       `db:"read" json:"read"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ValidType reports whether t is a known notification type.
func ValidType(t string) bool {
	switch t {
	case TypeBookingConfirmation, TypeTurnApproaching, TypeTurnNow,
		TypeAppointmentCancelled, TypeSystemAlert:
		return true
	}
	return false
}
