package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/notification"
)

type Service struct {
	appointments Repository
	notifier     notification.Writer
	logger       zerolog.Logger
}

func NewService(appointments Repository, notifier notification.Writer, logger zerolog.Logger) *Service {
	return &Service{appointments: appointments, notifier: notifier, logger: logger}
}

// Book creates a new appointment in booked status and logs a booking
// confirmation. The token number is assigned by the store.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if a.Priority == "" {
		a.Priority = PriorityNormal
	}
	if !ValidPriority(a.Priority) {
		return fmt.Errorf("invalid priority: %s", a.Priority)
	}
	a.Status = StatusBooked

	if err := s.appointments.Create(ctx, a); err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}

	msg := fmt.Sprintf("Appointment booked for %s, token number %d", a.Day(), a.TokenNumber)
	if err := s.notifier.Append(ctx, a.PatientID, &a.ID, notification.TypeBookingConfirmation, msg); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to log booking confirmation")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if a.Priority != "" && !ValidPriority(a.Priority) {
		return fmt.Errorf("invalid priority: %s", a.Priority)
	}
	return s.appointments.Update(ctx, a)
}

// CancelBooked cancels an appointment that has not been checked in yet.
// Cancellation after check-in goes through the queue engine so the live
// queue stays consistent.
func (s *Service) CancelBooked(ctx context.Context, id uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading appointment: %w", err)
	}

	ok, err := s.appointments.TransitionStatus(ctx, id, StatusBooked, StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancelling appointment: %w", err)
	}
	if !ok {
		return fmt.Errorf("appointment is not in booked status")
	}

	msg := fmt.Sprintf("Appointment for %s was cancelled", a.Day())
	if err := s.notifier.Append(ctx, a.PatientID, &a.ID, notification.TypeAppointmentCancelled, msg); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("failed to log cancellation")
	}
	return nil
}

func (s *Service) ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time, statuses []string) ([]*Appointment, error) {
	if len(statuses) == 0 {
		statuses = []string{StatusBooked, StatusCheckedIn, StatusInProgress, StatusCompleted}
	}
	for _, st := range statuses {
		if !ValidStatus(st) {
			return nil, fmt.Errorf("invalid status: %s", st)
		}
	}
	return s.appointments.ListForDoctorDay(ctx, doctorID, date, statuses)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}
