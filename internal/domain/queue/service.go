package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/clinic"
	"github.com/clinicq/clinicq/internal/domain/identity"
	"github.com/clinicq/clinicq/internal/domain/notification"
	"github.com/clinicq/clinicq/internal/domain/scheduling"
	"github.com/clinicq/clinicq/internal/platform/realtime"
)

// transitionRetryDelay is the pause before the single retry of a failed
// status write.
const transitionRetryDelay = 100 * time.Millisecond

// Service drives the live queue. It owns the ordering of durable writes,
// in-memory mutations, broadcasts, and notification appends for every queue
// operation: the status write commits first, the keeper applies second,
// broadcasts go out under the partition lock, and notification records are
// appended last, outside the lock.
type Service struct {
	keeper       *Keeper
	appointments scheduling.Repository
	doctors      identity.DoctorRepository
	clinics      clinic.Repository
	notifier     notification.Writer
	events       realtime.EventPublisher
	logger       zerolog.Logger

	defaultConsultMinutes int

	// runTx, when set, wraps multi-statement commits in one transaction.
	runTx func(ctx context.Context, fn func(context.Context) error) error
}

// WithTxRunner makes commits that span several statements run atomically.
// Without it each statement commits on its own.
func (s *Service) WithTxRunner(run func(ctx context.Context, fn func(context.Context) error) error) *Service {
	s.runTx = run
	return s
}

func NewService(
	keeper *Keeper,
	appointments scheduling.Repository,
	doctors identity.DoctorRepository,
	clinics clinic.Repository,
	notifier notification.Writer,
	events realtime.EventPublisher,
	logger zerolog.Logger,
	defaultConsultMinutes int,
) *Service {
	if defaultConsultMinutes <= 0 {
		defaultConsultMinutes = DefaultAverageConsultMinutes
	}
	return &Service{
		keeper:                keeper,
		appointments:          appointments,
		doctors:               doctors,
		clinics:               clinics,
		notifier:              notifier,
		events:                events,
		logger:                logger,
		defaultConsultMinutes: defaultConsultMinutes,
	}
}

// CheckInResult is returned to the patient at check-in.
type CheckInResult struct {
	Status        string `json:"status"`
	TokenNumber   int    `json:"token_number"`
	Position      int    `json:"position"`
	PatientsAhead int    `json:"patients_ahead"`
	WaitMinutes   int    `json:"wait_minutes"`
}

// PositionResult is the polling view of an entry's standing.
type PositionResult struct {
	Status        string `json:"status"`
	Position      int    `json:"position"`
	PatientsAhead int    `json:"patients_ahead"`
	WaitMinutes   int    `json:"wait_minutes"`
}

// CheckIn moves a booked appointment into its doctor's queue for the day.
func (s *Service) CheckIn(ctx context.Context, appointmentID uuid.UUID) (*CheckInResult, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("loading appointment: %w", err)
	}
	switch a.Status {
	case scheduling.StatusBooked:
	case scheduling.StatusCheckedIn, scheduling.StatusInProgress:
		return nil, ErrAlreadyQueued
	default:
		return nil, ErrInvalidAppointmentState
	}

	entry := &Entry{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		ClinicID:      a.ClinicID,
		PatientID:     a.PatientID,
		Date:          a.Day(),
		TokenNumber:   a.TokenNumber,
		Priority:      a.Priority,
	}

	_, err = s.keeper.CheckIn(ctx, entry,
		func(ctx context.Context) error {
			return s.transition(ctx, a.ID, scheduling.StatusBooked, scheduling.StatusCheckedIn)
		},
		func() {
			s.publishQueueUpdate(ctx, entry.DoctorID, entry.Date)
		},
	)
	if err != nil {
		return nil, err
	}

	pos, err := s.keeper.PositionOf(a.ID)
	if err != nil {
		return nil, err
	}
	wait := EstimateWait(pos.WaitingAhead, s.resolveConsultMinutes(ctx, a.DoctorID, a.ClinicID))

	s.append(ctx, a.PatientID, a.ID, notification.TypeBookingConfirmation,
		fmt.Sprintf("You are checked in with token %d, position %d in the queue.", a.TokenNumber, pos.Position))

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Int("position", pos.Position).
		Msg("patient checked in")

	return &CheckInResult{
		Status:        scheduling.StatusCheckedIn,
		TokenNumber:   a.TokenNumber,
		Position:      pos.Position,
		PatientsAhead: pos.PatientsAhead,
		WaitMinutes:   wait,
	}, nil
}

// CallNext promotes the head of the doctor's queue to in-progress and
// notifies the called patient plus the next one in line.
func (s *Service) CallNext(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Entry, error) {
	day := date.Format("2006-01-02")

	called, err := s.keeper.CallNext(ctx, doctorID, day,
		func(ctx context.Context, head *Entry) error {
			return s.transition(ctx, head.AppointmentID, scheduling.StatusCheckedIn, scheduling.StatusInProgress)
		},
		func(head *Entry) {
			s.publishQueueUpdate(ctx, doctorID, day)
			s.publish(ctx, realtime.NewEvent(
				realtime.EventYourTurn,
				realtime.AppointmentTopic(head.AppointmentID.String()),
				map[string]interface{}{"token_number": head.TokenNumber},
			))
		},
	)
	if err != nil {
		return nil, err
	}

	s.append(ctx, called.PatientID, called.AppointmentID, notification.TypeTurnNow,
		fmt.Sprintf("It is your turn now, token %d. Please proceed to the doctor.", called.TokenNumber))

	if next := s.headWaiting(doctorID, day); next != nil {
		s.append(ctx, next.PatientID, next.AppointmentID, notification.TypeTurnApproaching,
			fmt.Sprintf("You are next in line, token %d. Please stay close by.", next.TokenNumber))
	}

	s.logger.Info().
		Str("appointment_id", called.AppointmentID.String()).
		Str("doctor_id", doctorID.String()).
		Int("token", called.TokenNumber).
		Msg("patient called")

	return called, nil
}

// Complete finishes the doctor's current consultation, optionally storing
// notes taken during it.
func (s *Service) Complete(ctx context.Context, doctorID uuid.UUID, date time.Time, appointmentID uuid.UUID, notes string) error {
	day := date.Format("2006-01-02")

	commit := func(ctx context.Context) error {
		if err := s.transition(ctx, appointmentID, scheduling.StatusInProgress, scheduling.StatusCompleted); err != nil {
			return err
		}
		if notes != "" {
			if err := s.appointments.SetNotes(ctx, appointmentID, notes); err != nil {
				s.logger.Warn().Err(err).
					Str("appointment_id", appointmentID.String()).
					Msg("storing consultation notes failed")
			}
		}
		return nil
	}
	if s.runTx != nil {
		inner := commit
		commit = func(ctx context.Context) error { return s.runTx(ctx, inner) }
	}

	err := s.keeper.Complete(ctx, doctorID, day, appointmentID, commit,
		func() {
			s.publishQueueUpdate(ctx, doctorID, day)
		},
	)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("doctor_id", doctorID.String()).
		Msg("consultation completed")
	return nil
}

// Cancel removes a checked-in patient from the queue and cancels the
// appointment. An in-progress consultation cannot be cancelled here.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	return s.remove(ctx, appointmentID, scheduling.StatusCancelled)
}

// MarkNoShow removes a checked-in patient who did not answer their call.
func (s *Service) MarkNoShow(ctx context.Context, appointmentID uuid.UUID) error {
	return s.remove(ctx, appointmentID, scheduling.StatusNoShow)
}

func (s *Service) remove(ctx context.Context, appointmentID uuid.UUID, to string) error {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("loading appointment: %w", err)
	}
	if a.Status == scheduling.StatusInProgress {
		return ErrInvalidAppointmentState
	}
	if a.Status != scheduling.StatusCheckedIn {
		return ErrNotQueued
	}

	day := a.Day()
	entry, err := s.keeper.Remove(ctx, a.DoctorID, day, appointmentID,
		func(ctx context.Context) error {
			return s.transition(ctx, appointmentID, scheduling.StatusCheckedIn, to)
		},
		func() {
			s.publishQueueUpdate(ctx, a.DoctorID, day)
		},
	)
	if err != nil {
		return err
	}

	if to == scheduling.StatusCancelled {
		s.append(ctx, entry.PatientID, entry.AppointmentID, notification.TypeAppointmentCancelled,
			fmt.Sprintf("Your appointment with token %d has been cancelled.", entry.TokenNumber))
	}

	s.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("status", to).
		Msg("patient removed from queue")
	return nil
}

// Position reports a queued appointment's live standing and wait estimate.
func (s *Service) Position(ctx context.Context, appointmentID uuid.UUID) (*PositionResult, error) {
	pos, err := s.keeper.PositionOf(appointmentID)
	if err != nil {
		return nil, err
	}

	result := &PositionResult{
		Status:        pos.Status,
		Position:      pos.Position,
		PatientsAhead: pos.PatientsAhead,
	}
	if pos.Status == EntryWaiting {
		a, err := s.appointments.GetByID(ctx, appointmentID)
		if err != nil {
			return nil, fmt.Errorf("loading appointment: %w", err)
		}
		result.WaitMinutes = EstimateWait(pos.WaitingAhead, s.resolveConsultMinutes(ctx, a.DoctorID, a.ClinicID))
	}
	return result, nil
}

// Snapshot returns the doctor's queue in call order, in-progress first.
func (s *Service) Snapshot(doctorID uuid.UUID, date time.Time) []Entry {
	return s.keeper.Snapshot(doctorID, date.Format("2006-01-02"))
}

// Recover rebuilds the keeper from appointments still checked-in or
// in-progress today. Called once at startup before the server accepts
// traffic.
func (s *Service) Recover(ctx context.Context, now time.Time) error {
	active, err := s.appointments.ListActive(ctx, now)
	if err != nil {
		return fmt.Errorf("listing active appointments: %w", err)
	}

	entries := make([]*Entry, 0, len(active))
	for _, a := range active {
		var seq int64
		if a.CheckInSeq != nil {
			seq = *a.CheckInSeq
		}
		status := EntryWaiting
		if a.Status == scheduling.StatusInProgress {
			status = EntryInProgress
		}
		entries = append(entries, &Entry{
			AppointmentID:   a.ID,
			DoctorID:        a.DoctorID,
			ClinicID:        a.ClinicID,
			PatientID:       a.PatientID,
			Date:            a.Day(),
			CheckInSequence: seq,
			TokenNumber:     a.TokenNumber,
			Priority:        a.Priority,
			Status:          status,
		})
	}
	s.keeper.Recover(entries)

	s.logger.Info().Int("entries", len(entries)).Msg("queue state recovered")
	return nil
}

// ReapStale drops partitions for days before now. Run periodically.
func (s *Service) ReapStale(now time.Time) {
	if n := s.keeper.Reap(now.Format("2006-01-02")); n > 0 {
		s.logger.Info().Int("partitions", n).Msg("stale queue partitions reaped")
	}
}

// transition performs the conditional status write with a single retry on
// store failure. A clean refusal (wrong prior status) is never retried.
func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to string) error {
	ok, err := s.appointments.TransitionStatus(ctx, id, from, to)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", id.String()).
			Str("to", to).
			Msg("status write failed, retrying")
		time.Sleep(transitionRetryDelay)
		ok, err = s.appointments.TransitionStatus(ctx, id, from, to)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", id.String()).
			Str("to", to).
			Msg("status write failed after retry")
		return ErrPersistenceFailed
	}
	if !ok {
		return ErrInvalidAppointmentState
	}
	return nil
}

// resolveConsultMinutes walks the override chain: doctor, then clinic, then
// the configured default. Lookup failures fall through to the next level.
func (s *Service) resolveConsultMinutes(ctx context.Context, doctorID, clinicID uuid.UUID) int {
	if d, err := s.doctors.GetByID(ctx, doctorID); err == nil && d.AverageConsultMinutes != nil && *d.AverageConsultMinutes > 0 {
		return *d.AverageConsultMinutes
	}
	if cl, err := s.clinics.GetByID(ctx, clinicID); err == nil && cl.DefaultConsultMinutes != nil && *cl.DefaultConsultMinutes > 0 {
		return *cl.DefaultConsultMinutes
	}
	return s.defaultConsultMinutes
}

func (s *Service) headWaiting(doctorID uuid.UUID, day string) *Entry {
	for _, e := range s.keeper.Snapshot(doctorID, day) {
		if e.Status == EntryWaiting {
			return &e
		}
	}
	return nil
}

func (s *Service) publishQueueUpdate(ctx context.Context, doctorID uuid.UUID, day string) {
	s.publish(ctx, realtime.NewEvent(
		realtime.EventQueueUpdate,
		realtime.QueueTopic(doctorID.String(), day),
		nil,
	))
}

func (s *Service) publish(ctx context.Context, ev realtime.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("topic", ev.Topic).Str("type", ev.Type).Msg("event publish failed")
	}
}

func (s *Service) append(ctx context.Context, userID, appointmentID uuid.UUID, notifType, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Append(ctx, userID, &appointmentID, notifType, message); err != nil {
		s.logger.Warn().Err(err).Str("type", notifType).Msg("notification append failed")
	}
}
