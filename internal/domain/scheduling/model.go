package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. The lifecycle is linear with one branch:
// booked -> checked-in -> in-progress -> completed, with cancelled and
// no-show reachable from booked or checked-in.
const (
	StatusBooked     = "booked"
	StatusCheckedIn  = "checked-in"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no-show"
)

// Queue priorities.
const (
	PriorityNormal    = "normal"
	PriorityEmergency = "emergency"
)

// Appointment maps to the appointment table. TokenNumber is the human-facing
// queue number assigned once at booking, monotonic per doctor per day.
// CheckInSeq is the durable ordering key assigned at check-in; it is distinct
// from the token number and governs queue order on recovery.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClinicID    uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Date        time.Time  `db:"date" json:"date"`
	SlotTime    *string    `db:"slot_time" json:"slot_time,omitempty"`
	TokenNumber int        `db:"token_number" json:"token_number"`
	Priority    string     `db:"priority" json:"priority"`
	Status      string     `db:"status" json:"status"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CheckInSeq  *int64     `db:"check_in_seq" json:"check_in_seq,omitempty"`
	CheckedInAt *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CalledAt    *time.Time `db:"called_at" json:"called_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Day returns the appointment date in YYYY-MM-DD form, the queue partition key.
func (a *Appointment) Day() string {
	return a.Date.Format("2006-01-02")
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusBooked, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known queue priority.
func ValidPriority(p string) bool {
	return p == PriorityNormal || p == PriorityEmergency
}
