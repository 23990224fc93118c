package scheduling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
	nextSeq      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	max := 0
	for _, other := range m.appointments {
		if other.DoctorID == a.DoctorID && other.Day() == a.Day() && other.TokenNumber > max {
			max = other.TokenNumber
		}
	}
	a.TokenNumber = max + 1
	a.CreatedAt = time.Now()
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment not found")
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return fmt.Errorf("appointment not found")
	}
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appointments, id)
	return nil
}

func (m *mockRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	now := time.Now()
	switch to {
	case StatusCheckedIn:
		m.nextSeq++
		seq := m.nextSeq
		a.CheckInSeq = &seq
		a.CheckedInAt = &now
	case StatusInProgress:
		a.CalledAt = &now
	case StatusCompleted:
		a.CompletedAt = &now
	case StatusCancelled, StatusNoShow:
		a.CancelledAt = &now
	}
	return true, nil
}

func (m *mockRepo) SetNotes(_ context.Context, id uuid.UUID, notes string) error {
	a, ok := m.appointments[id]
	if !ok {
		return fmt.Errorf("appointment not found")
	}
	a.Notes = &notes
	return nil
}

func (m *mockRepo) ListForDoctorDay(_ context.Context, doctorID uuid.UUID, date time.Time, statuses []string) ([]*Appointment, error) {
	want := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var items []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Day() == date.Format("2006-01-02") && want[a.Status] {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *mockRepo) ListActive(_ context.Context, date time.Time) ([]*Appointment, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.Day() == date.Format("2006-01-02") && (a.Status == StatusCheckedIn || a.Status == StatusInProgress) {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

type mockNotifier struct {
	appended []string
}

func (m *mockNotifier) Append(_ context.Context, _ uuid.UUID, _ *uuid.UUID, notifType, _ string) error {
	m.appended = append(m.appended, notifType)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockNotifier) {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	return NewService(repo, notifier, zerolog.Nop()), repo, notifier
}

func validAppointment() *Appointment {
	return &Appointment{
		ClinicID:  uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBookValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a := validAppointment()
	a.ClinicID = uuid.Nil
	if err := svc.Book(ctx, a); err == nil {
		t.Error("expected error for missing clinic_id")
	}

	a = validAppointment()
	a.Priority = "urgent"
	if err := svc.Book(ctx, a); err == nil {
		t.Error("expected error for invalid priority")
	}

	a = validAppointment()
	if err := svc.Book(ctx, a); err != nil {
		t.Fatalf("valid booking should succeed: %v", err)
	}
	if a.Status != StatusBooked {
		t.Errorf("status = %q, want booked", a.Status)
	}
	if a.Priority != PriorityNormal {
		t.Errorf("priority = %q, want default normal", a.Priority)
	}
}

func TestBookAssignsMonotonicTokens(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for want := 1; want <= 3; want++ {
		a := validAppointment()
		a.DoctorID = doctorID
		a.Date = date
		if err := svc.Book(ctx, a); err != nil {
			t.Fatalf("booking: %v", err)
		}
		if a.TokenNumber != want {
			t.Errorf("token = %d, want %d", a.TokenNumber, want)
		}
	}
}

func TestBookLogsConfirmation(t *testing.T) {
	svc, _, notifier := newTestService()

	a := validAppointment()
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("booking: %v", err)
	}
	if len(notifier.appended) != 1 || notifier.appended[0] != "booking-confirmation" {
		t.Errorf("expected booking-confirmation notification, got %v", notifier.appended)
	}
}

func TestCancelBooked(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()

	a := validAppointment()
	if err := svc.Book(ctx, a); err != nil {
		t.Fatalf("booking: %v", err)
	}

	if err := svc.CancelBooked(ctx, a.ID); err != nil {
		t.Fatalf("cancelling booked appointment: %v", err)
	}
	if repo.appointments[a.ID].Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", repo.appointments[a.ID].Status)
	}
	if notifier.appended[len(notifier.appended)-1] != "appointment-cancelled" {
		t.Error("expected appointment-cancelled notification")
	}

	// Cancelling again must fail: the appointment is no longer booked.
	if err := svc.CancelBooked(ctx, a.ID); err == nil {
		t.Error("expected error cancelling a non-booked appointment")
	}
}

func TestListForDoctorDayRejectsBadStatus(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.ListForDoctorDay(context.Background(), uuid.New(), time.Now(), []string{"bogus"})
	if err == nil {
		t.Error("expected error for invalid status filter")
	}
}
