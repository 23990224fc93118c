package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the durable appointment store. TransitionStatus is the
// optimistic conditional write the queue engine relies on: the transition
// succeeds only when the current status matches the expected prior state.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// TransitionStatus conditionally moves an appointment from one status to
	// another, stamping the transition timestamp (and check-in sequence for
	// the checked-in transition). Returns false when the appointment was not
	// in the expected prior status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	// SetNotes stores consultation notes, typically at completion.
	SetNotes(ctx context.Context, id uuid.UUID, notes string) error

	// ListForDoctorDay returns one doctor's appointments for a day filtered
	// by status, ordered by check-in sequence then token number.
	ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time, statuses []string) ([]*Appointment, error)

	// ListActive returns every appointment still checked-in or in-progress
	// for the given day across all doctors, in check-in order. Used to
	// rebuild queue state after a restart.
	ListActive(ctx context.Context, date time.Time) ([]*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}
