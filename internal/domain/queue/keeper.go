package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type partitionKey struct {
	doctorID uuid.UUID
	date     string
}

// partition is one (doctor, date) queue. sem serializes mutating operations;
// stateMu guards the in-memory structure so position reads never observe a
// half-applied mutation.
type partition struct {
	sem     chan struct{}
	stateMu sync.Mutex

	nextSeq    int64
	waiting    []*Entry
	inProgress *Entry
}

func newPartition() *partition {
	return &partition{sem: make(chan struct{}, 1)}
}

// Keeper holds the authoritative in-memory ordering for each active
// (doctor, date) partition. Partitions are created lazily on first check-in
// and reaped once their day has passed.
//
// Every mutating operation takes a commit callback: the durable write that
// must succeed before the in-memory state changes. Running the write under
// the partition lock, before the apply, keeps in-memory state from ever
// running ahead of durable truth, so a failed write needs no rollback. The
// optional then callback runs after the apply but still under the lock,
// which is what keeps successive broadcasts for one partition in mutation
// order; it must not block.
type Keeper struct {
	mu         sync.Mutex
	partitions map[partitionKey]*partition
	index      map[uuid.UUID]partitionKey

	lockTimeout time.Duration
}

func NewKeeper(lockTimeout time.Duration) *Keeper {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	return &Keeper{
		partitions:  make(map[partitionKey]*partition),
		index:       make(map[uuid.UUID]partitionKey),
		lockTimeout: lockTimeout,
	}
}

func (k *Keeper) partitionFor(key partitionKey, create bool) *partition {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.partitions[key]
	if !ok && create {
		p = newPartition()
		k.partitions[key] = p
	}
	return p
}

// acquire takes the partition's mutation lock, failing with ErrBusy when the
// lock cannot be had within the configured timeout.
func (k *Keeper) acquire(ctx context.Context, p *partition) error {
	timer := time.NewTimer(k.lockTimeout)
	defer timer.Stop()
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ErrBusy
	}
}

func (k *Keeper) release(p *partition) {
	<-p.sem
}

// CheckIn assigns the next check-in sequence for the entry's partition,
// runs commit, and inserts the entry by priority band then sequence.
func (k *Keeper) CheckIn(ctx context.Context, e *Entry, commit func(context.Context) error, then func()) (*Entry, error) {
	key := partitionKey{doctorID: e.DoctorID, date: e.Date}
	p := k.partitionFor(key, true)

	if err := k.acquire(ctx, p); err != nil {
		return nil, err
	}
	defer k.release(p)

	k.mu.Lock()
	_, queued := k.index[e.AppointmentID]
	k.mu.Unlock()
	if queued {
		return nil, ErrAlreadyQueued
	}

	e.CheckInSequence = p.nextSeq + 1
	e.Status = EntryWaiting

	if err := commit(ctx); err != nil {
		return nil, err
	}

	p.stateMu.Lock()
	p.nextSeq = e.CheckInSequence
	p.waiting = insertOrdered(p.waiting, e)
	p.stateMu.Unlock()

	k.mu.Lock()
	k.index[e.AppointmentID] = key
	k.mu.Unlock()

	if then != nil {
		then()
	}
	return e, nil
}

// insertOrdered places e before the first entry it outranks, keeping the
// slice sorted by (priority band, check-in sequence). An emergency entry
// therefore lands behind already-waiting emergencies but ahead of normals.
func insertOrdered(waiting []*Entry, e *Entry) []*Entry {
	at := len(waiting)
	for i, w := range waiting {
		if e.before(w) {
			at = i
			break
		}
	}
	waiting = append(waiting, nil)
	copy(waiting[at+1:], waiting[at:])
	waiting[at] = e
	return waiting
}

// CallNext promotes the head waiting entry to in-progress. The commit
// callback receives the head so the caller can persist its transition.
func (k *Keeper) CallNext(ctx context.Context, doctorID uuid.UUID, date string, commit func(context.Context, *Entry) error, then func(*Entry)) (*Entry, error) {
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: date}, false)
	if p == nil {
		return nil, ErrQueueEmpty
	}

	if err := k.acquire(ctx, p); err != nil {
		return nil, err
	}
	defer k.release(p)

	if p.inProgress != nil {
		return nil, ErrConsultationInProgress
	}
	if len(p.waiting) == 0 {
		return nil, ErrQueueEmpty
	}

	head := p.waiting[0]
	if err := commit(ctx, head); err != nil {
		return nil, err
	}

	p.stateMu.Lock()
	p.waiting = p.waiting[1:]
	head.Status = EntryInProgress
	p.inProgress = head
	p.stateMu.Unlock()

	if then != nil {
		then(head)
	}
	return head, nil
}

// Complete removes the current in-progress entry from the partition.
func (k *Keeper) Complete(ctx context.Context, doctorID uuid.UUID, date string, appointmentID uuid.UUID, commit func(context.Context) error, then func()) error {
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: date}, false)
	if p == nil {
		return ErrNotCurrentPatient
	}

	if err := k.acquire(ctx, p); err != nil {
		return err
	}
	defer k.release(p)

	if p.inProgress == nil || p.inProgress.AppointmentID != appointmentID {
		return ErrNotCurrentPatient
	}

	if err := commit(ctx); err != nil {
		return err
	}

	p.stateMu.Lock()
	p.inProgress = nil
	p.stateMu.Unlock()

	k.mu.Lock()
	delete(k.index, appointmentID)
	k.mu.Unlock()

	if then != nil {
		then()
	}
	return nil
}

// Remove drops a waiting entry without promotion, for cancellation or
// no-show. Removing the in-progress entry is not allowed through this path.
func (k *Keeper) Remove(ctx context.Context, doctorID uuid.UUID, date string, appointmentID uuid.UUID, commit func(context.Context) error, then func()) (*Entry, error) {
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: date}, false)
	if p == nil {
		return nil, ErrNotQueued
	}

	if err := k.acquire(ctx, p); err != nil {
		return nil, err
	}
	defer k.release(p)

	if p.inProgress != nil && p.inProgress.AppointmentID == appointmentID {
		return nil, ErrInvalidAppointmentState
	}

	at := -1
	for i, w := range p.waiting {
		if w.AppointmentID == appointmentID {
			at = i
			break
		}
	}
	if at == -1 {
		return nil, ErrNotQueued
	}
	entry := p.waiting[at]

	if err := commit(ctx); err != nil {
		return nil, err
	}

	p.stateMu.Lock()
	p.waiting = append(p.waiting[:at], p.waiting[at+1:]...)
	p.stateMu.Unlock()

	k.mu.Lock()
	delete(k.index, appointmentID)
	k.mu.Unlock()

	if then != nil {
		then()
	}
	return entry, nil
}

// PositionOf reports where an appointment stands in its partition, located
// through the global index so callers need not know the partition key.
func (k *Keeper) PositionOf(appointmentID uuid.UUID) (Position, error) {
	k.mu.Lock()
	key, ok := k.index[appointmentID]
	k.mu.Unlock()
	if !ok {
		return Position{}, ErrNotQueued
	}

	p := k.partitionFor(key, false)
	if p == nil {
		return Position{}, ErrNotQueued
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if p.inProgress != nil && p.inProgress.AppointmentID == appointmentID {
		return Position{Position: 0, PatientsAhead: 0, WaitingAhead: 0, Status: EntryInProgress}, nil
	}
	for i, w := range p.waiting {
		if w.AppointmentID == appointmentID {
			ahead := i
			patientsAhead := ahead
			if p.inProgress != nil {
				patientsAhead++
			}
			return Position{Position: ahead + 1, PatientsAhead: patientsAhead, WaitingAhead: ahead, Status: EntryWaiting}, nil
		}
	}
	return Position{}, ErrNotQueued
}

// Snapshot returns the partition's live entries in order, in-progress first.
func (k *Keeper) Snapshot(doctorID uuid.UUID, date string) []Entry {
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: date}, false)
	if p == nil {
		return nil
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	out := make([]Entry, 0, len(p.waiting)+1)
	if p.inProgress != nil {
		out = append(out, *p.inProgress)
	}
	for _, w := range p.waiting {
		out = append(out, *w)
	}
	return out
}

// Waiting returns the appointment ids of waiting entries in order. Used to
// fan out position updates after a mutation shifts every rank.
func (k *Keeper) Waiting(doctorID uuid.UUID, date string) []uuid.UUID {
	p := k.partitionFor(partitionKey{doctorID: doctorID, date: date}, false)
	if p == nil {
		return nil
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	ids := make([]uuid.UUID, len(p.waiting))
	for i, w := range p.waiting {
		ids[i] = w.AppointmentID
	}
	return ids
}

// Recover rebuilds partitions from durable entries after a restart. It is
// called before the keeper serves traffic, so it takes no locks beyond the
// map guard.
func (k *Keeper) Recover(entries []*Entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, e := range entries {
		key := partitionKey{doctorID: e.DoctorID, date: e.Date}
		p, ok := k.partitions[key]
		if !ok {
			p = newPartition()
			k.partitions[key] = p
		}

		if e.CheckInSequence > p.nextSeq {
			p.nextSeq = e.CheckInSequence
		}
		if e.Status == EntryInProgress {
			// At most one in-progress entry can exist per partition in
			// durable state; keep the first seen.
			if p.inProgress == nil {
				p.inProgress = e
			}
		} else {
			e.Status = EntryWaiting
			p.waiting = insertOrdered(p.waiting, e)
		}
		k.index[e.AppointmentID] = key
	}
}

// Reap discards partitions for any date other than activeDate. Partitions
// mid-mutation are skipped and collected on a later pass.
func (k *Keeper) Reap(activeDate string) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	reaped := 0
	for key, p := range k.partitions {
		if key.date == activeDate {
			continue
		}
		select {
		case p.sem <- struct{}{}:
		default:
			continue
		}

		for _, w := range p.waiting {
			delete(k.index, w.AppointmentID)
		}
		if p.inProgress != nil {
			delete(k.index, p.inProgress.AppointmentID)
		}
		delete(k.partitions, key)
		reaped++
	}
	return reaped
}
