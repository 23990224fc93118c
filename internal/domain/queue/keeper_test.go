package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

const testDay = "2026-09-01"

func noCommit(context.Context) error { return nil }

func newEntry(doctorID uuid.UUID, priority string, token int) *Entry {
	return &Entry{
		AppointmentID: uuid.New(),
		DoctorID:      doctorID,
		ClinicID:      uuid.New(),
		PatientID:     uuid.New(),
		Date:          testDay,
		TokenNumber:   token,
		Priority:      priority,
	}
}

func mustCheckIn(t *testing.T, k *Keeper, e *Entry) {
	t.Helper()
	if _, err := k.CheckIn(context.Background(), e, noCommit, nil); err != nil {
		t.Fatalf("check-in token %d: %v", e.TokenNumber, err)
	}
}

func waitingOrder(t *testing.T, k *Keeper, doctorID uuid.UUID) []uuid.UUID {
	t.Helper()
	return k.Waiting(doctorID, testDay)
}

func TestCheckInOrdersByPriorityThenSequence(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	p3 := newEntry(doctorID, scheduling.PriorityEmergency, 3)
	mustCheckIn(t, k, p1)
	mustCheckIn(t, k, p2)
	mustCheckIn(t, k, p3)

	got := waitingOrder(t, k, doctorID)
	want := []uuid.UUID{p3.AppointmentID, p1.AppointmentID, p2.AppointmentID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("waiting[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	for i, e := range []*Entry{p3, p1, p2} {
		pos, err := k.PositionOf(e.AppointmentID)
		if err != nil {
			t.Fatalf("position of token %d: %v", e.TokenNumber, err)
		}
		if pos.Position != i+1 {
			t.Errorf("token %d position = %d, want %d", e.TokenNumber, pos.Position, i+1)
		}
	}
}

func TestEmergencyDoesNotOvertakeEarlierEmergency(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()

	e1 := newEntry(doctorID, scheduling.PriorityEmergency, 1)
	n1 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	e2 := newEntry(doctorID, scheduling.PriorityEmergency, 3)
	mustCheckIn(t, k, e1)
	mustCheckIn(t, k, n1)
	mustCheckIn(t, k, e2)

	got := waitingOrder(t, k, doctorID)
	want := []uuid.UUID{e1.AppointmentID, e2.AppointmentID, n1.AppointmentID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("waiting[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCheckInRejectsDuplicate(t *testing.T) {
	k := NewKeeper(time.Second)
	e := newEntry(uuid.New(), scheduling.PriorityNormal, 1)
	mustCheckIn(t, k, e)

	dup := *e
	if _, err := k.CheckIn(context.Background(), &dup, noCommit, nil); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("duplicate check-in error = %v, want ErrAlreadyQueued", err)
	}
}

func TestCheckInCommitFailureLeavesStateUntouched(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	e := newEntry(doctorID, scheduling.PriorityNormal, 1)

	boom := errors.New("db down")
	_, err := k.CheckIn(context.Background(), e, func(context.Context) error { return boom }, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("check-in error = %v, want commit error", err)
	}
	if _, err := k.PositionOf(e.AppointmentID); !errors.Is(err, ErrNotQueued) {
		t.Error("failed check-in must not enter the queue")
	}
	if got := waitingOrder(t, k, doctorID); len(got) != 0 {
		t.Errorf("waiting = %d entries, want 0", len(got))
	}

	// A later check-in succeeds and gets sequence 1.
	e2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	mustCheckIn(t, k, e2)
	if e2.CheckInSequence != 1 {
		t.Errorf("sequence = %d, want 1", e2.CheckInSequence)
	}
}

func TestCallNextPromotesHead(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	mustCheckIn(t, k, p1)
	mustCheckIn(t, k, p2)

	called, err := k.CallNext(ctx, doctorID, testDay, func(context.Context, *Entry) error { return nil }, nil)
	if err != nil {
		t.Fatalf("call-next: %v", err)
	}
	if called.AppointmentID != p1.AppointmentID {
		t.Fatal("call-next should promote the head entry")
	}

	pos, err := k.PositionOf(p1.AppointmentID)
	if err != nil {
		t.Fatalf("position of called entry: %v", err)
	}
	if pos.Position != 0 || pos.Status != EntryInProgress || pos.PatientsAhead != 0 {
		t.Errorf("called position = %+v, want in-progress at 0", pos)
	}

	pos, err = k.PositionOf(p2.AppointmentID)
	if err != nil {
		t.Fatalf("position of next entry: %v", err)
	}
	if pos.Position != 1 || pos.PatientsAhead != 1 || pos.WaitingAhead != 0 {
		t.Errorf("next position = %+v, want position 1 with one patient ahead", pos)
	}
}

func TestCallNextGuards(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()
	commit := func(context.Context, *Entry) error { return nil }

	if _, err := k.CallNext(ctx, doctorID, testDay, commit, nil); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("empty queue error = %v, want ErrQueueEmpty", err)
	}

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	mustCheckIn(t, k, p1)
	if _, err := k.CallNext(ctx, doctorID, testDay, commit, nil); err != nil {
		t.Fatalf("call-next: %v", err)
	}
	if _, err := k.CallNext(ctx, doctorID, testDay, commit, nil); !errors.Is(err, ErrConsultationInProgress) {
		t.Fatalf("second call-next error = %v, want ErrConsultationInProgress", err)
	}
}

func TestCallNextCommitFailureKeepsHeadWaiting(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	mustCheckIn(t, k, p1)

	boom := errors.New("db down")
	if _, err := k.CallNext(ctx, doctorID, testDay, func(context.Context, *Entry) error { return boom }, nil); !errors.Is(err, boom) {
		t.Fatalf("call-next error = %v, want commit error", err)
	}

	pos, err := k.PositionOf(p1.AppointmentID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Status != EntryWaiting || pos.Position != 1 {
		t.Errorf("entry = %+v, want still waiting at position 1", pos)
	}
}

func TestCompleteThenCallNextPromotesNext(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()
	commit := func(context.Context, *Entry) error { return nil }

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	mustCheckIn(t, k, p1)
	mustCheckIn(t, k, p2)

	if _, err := k.CallNext(ctx, doctorID, testDay, commit, nil); err != nil {
		t.Fatalf("call-next: %v", err)
	}

	if err := k.Complete(ctx, doctorID, testDay, p2.AppointmentID, noCommit, nil); !errors.Is(err, ErrNotCurrentPatient) {
		t.Fatalf("completing wrong patient error = %v, want ErrNotCurrentPatient", err)
	}
	if err := k.Complete(ctx, doctorID, testDay, p1.AppointmentID, noCommit, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := k.PositionOf(p1.AppointmentID); !errors.Is(err, ErrNotQueued) {
		t.Error("completed entry must leave the index")
	}

	called, err := k.CallNext(ctx, doctorID, testDay, commit, nil)
	if err != nil {
		t.Fatalf("call-next after complete: %v", err)
	}
	if called.AppointmentID != p2.AppointmentID {
		t.Error("call-next after complete should promote the former position 1")
	}
}

func TestRemove(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	p3 := newEntry(doctorID, scheduling.PriorityNormal, 3)
	mustCheckIn(t, k, p1)
	mustCheckIn(t, k, p2)
	mustCheckIn(t, k, p3)

	if _, err := k.Remove(ctx, doctorID, testDay, uuid.New(), noCommit, nil); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("removing unknown entry error = %v, want ErrNotQueued", err)
	}

	if _, err := k.Remove(ctx, doctorID, testDay, p2.AppointmentID, noCommit, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	pos, err := k.PositionOf(p3.AppointmentID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Position != 2 {
		t.Errorf("position after removal = %d, want 2", pos.Position)
	}

	if _, err := k.CallNext(ctx, doctorID, testDay, func(context.Context, *Entry) error { return nil }, nil); err != nil {
		t.Fatalf("call-next: %v", err)
	}
	if _, err := k.Remove(ctx, doctorID, testDay, p1.AppointmentID, noCommit, nil); !errors.Is(err, ErrInvalidAppointmentState) {
		t.Fatalf("removing in-progress entry error = %v, want ErrInvalidAppointmentState", err)
	}
}

func TestCheckInThenRemoveRestoresPositions(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	ctx := context.Background()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	mustCheckIn(t, k, p1)
	mustCheckIn(t, k, p2)

	before := make(map[uuid.UUID]int)
	for _, id := range []uuid.UUID{p1.AppointmentID, p2.AppointmentID} {
		pos, err := k.PositionOf(id)
		if err != nil {
			t.Fatalf("position: %v", err)
		}
		before[id] = pos.Position
	}

	transient := newEntry(doctorID, scheduling.PriorityEmergency, 3)
	mustCheckIn(t, k, transient)
	if _, err := k.Remove(ctx, doctorID, testDay, transient.AppointmentID, noCommit, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}

	for id, want := range before {
		pos, err := k.PositionOf(id)
		if err != nil {
			t.Fatalf("position after round trip: %v", err)
		}
		if pos.Position != want {
			t.Errorf("position = %d, want %d as before the transient check-in", pos.Position, want)
		}
	}
}

func TestAcquireTimesOutBusy(t *testing.T) {
	k := NewKeeper(20 * time.Millisecond)
	doctorID := uuid.New()

	p1 := newEntry(doctorID, scheduling.PriorityNormal, 1)
	mustCheckIn(t, k, p1)

	// Hold the partition's mutation lock so the next operation times out.
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: testDay}, false)
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	p2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	if _, err := k.CheckIn(context.Background(), p2, noCommit, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("check-in under held lock error = %v, want ErrBusy", err)
	}
}

func TestRecoverRebuildsPartitions(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()

	inProgress := newEntry(doctorID, scheduling.PriorityNormal, 1)
	inProgress.CheckInSequence = 1
	inProgress.Status = EntryInProgress
	w2 := newEntry(doctorID, scheduling.PriorityNormal, 2)
	w2.CheckInSequence = 2
	w3 := newEntry(doctorID, scheduling.PriorityEmergency, 3)
	w3.CheckInSequence = 3

	// Durable order is by sequence; recovery must restore priority order.
	k.Recover([]*Entry{inProgress, w2, w3})

	got := waitingOrder(t, k, doctorID)
	want := []uuid.UUID{w3.AppointmentID, w2.AppointmentID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("waiting[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	pos, err := k.PositionOf(inProgress.AppointmentID)
	if err != nil {
		t.Fatalf("position of recovered in-progress: %v", err)
	}
	if pos.Status != EntryInProgress {
		t.Errorf("status = %q, want in-progress", pos.Status)
	}

	// Sequences continue past the recovered maximum.
	w4 := newEntry(doctorID, scheduling.PriorityNormal, 4)
	mustCheckIn(t, k, w4)
	if w4.CheckInSequence != 4 {
		t.Errorf("sequence after recovery = %d, want 4", w4.CheckInSequence)
	}
}

func TestReapDropsStalePartitions(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()

	stale := newEntry(doctorID, scheduling.PriorityNormal, 1)
	stale.Date = "2026-08-31"
	mustCheckIn(t, k, stale)

	fresh := newEntry(doctorID, scheduling.PriorityNormal, 1)
	mustCheckIn(t, k, fresh)

	if n := k.Reap(testDay); n != 1 {
		t.Fatalf("reaped = %d, want 1", n)
	}
	if _, err := k.PositionOf(stale.AppointmentID); !errors.Is(err, ErrNotQueued) {
		t.Error("stale entry must leave the index")
	}
	if _, err := k.PositionOf(fresh.AppointmentID); err != nil {
		t.Errorf("fresh entry must survive reaping: %v", err)
	}
}

func TestThenRunsAfterApply(t *testing.T) {
	k := NewKeeper(time.Second)
	doctorID := uuid.New()
	e := newEntry(doctorID, scheduling.PriorityNormal, 1)

	var seen int
	_, err := k.CheckIn(context.Background(), e, noCommit, func() {
		seen = len(waitingOrder(t, k, doctorID))
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if seen != 1 {
		t.Errorf("then hook saw %d waiting entries, want 1", seen)
	}
}
