package queue

import (
	"github.com/google/uuid"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

// Entry statuses.
const (
	EntryWaiting    = "waiting"
	EntryInProgress = "in-progress"
)

// Entry is one checked-in appointment's place in a doctor's queue. It only
// references the owning appointment; appointment data is never duplicated
// beyond what the queue needs for ordering and display.
type Entry struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	ClinicID      uuid.UUID `json:"clinic_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Date          string    `json:"date"`

	// CheckInSequence is strictly increasing per partition and governs
	// ordering within a priority band. TokenNumber is the immutable
	// human-facing number assigned at booking.
	CheckInSequence int64  `json:"check_in_sequence"`
	TokenNumber     int    `json:"token_number"`
	Priority        string `json:"priority"`
	Status          string `json:"status"`
}

// priorityRank orders emergency entries ahead of normal ones. Lower ranks
// sort first.
func (e *Entry) priorityRank() int {
	if e.Priority == scheduling.PriorityEmergency {
		return 0
	}
	return 1
}

// before reports whether e is ordered ahead of other: priority band first,
// check-in sequence within a band.
func (e *Entry) before(other *Entry) bool {
	if e.priorityRank() != other.priorityRank() {
		return e.priorityRank() < other.priorityRank()
	}
	return e.CheckInSequence < other.CheckInSequence
}

// Position describes where an entry stands in its partition.
type Position struct {
	// Position is 1-indexed among waiting entries; 0 for the in-progress entry.
	Position int `json:"position"`
	// PatientsAhead counts waiting entries strictly ahead, plus the
	// in-progress entry if one exists.
	PatientsAhead int `json:"patients_ahead"`
	// WaitingAhead counts only waiting entries strictly ahead; the wait
	// estimate is computed from this.
	WaitingAhead int    `json:"-"`
	Status       string `json:"status"`
}
