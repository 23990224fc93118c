package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/clinicq/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const appointmentCols = `id, clinic_id, doctor_id, patient_id, date, slot_time, token_number,
	priority, status, reason, notes, check_in_seq, checked_in_at, called_at,
	completed_at, cancelled_at, created_at, updated_at`

func (r *repoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.DoctorID, &a.PatientID, &a.Date, &a.SlotTime,
		&a.TokenNumber, &a.Priority, &a.Status, &a.Reason, &a.Notes, &a.CheckInSeq,
		&a.CheckedInAt, &a.CalledAt, &a.CompletedAt, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

// Create inserts the appointment and assigns the next token number for the
// doctor's day in the same statement, so concurrent bookings cannot collide.
func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, clinic_id, doctor_id, patient_id, date, slot_time,
			token_number, priority, status, reason)
		VALUES ($1,$2,$3,$4,$5,$6,
			(SELECT COALESCE(MAX(token_number), 0) + 1 FROM appointment WHERE doctor_id = $3 AND date = $5),
			$7,$8,$9)
		RETURNING token_number`,
		a.ID, a.ClinicID, a.DoctorID, a.PatientID, a.Date, a.SlotTime,
		a.Priority, a.Status, a.Reason).Scan(&a.TokenNumber)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET slot_time=$2, priority=$3, reason=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.SlotTime, a.Priority, a.Reason, a.Notes)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return err
}

func (r *repoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	var stamp string
	switch to {
	case StatusCheckedIn:
		stamp = `, checked_in_at = NOW(), check_in_seq = nextval('appointment_check_in_seq')`
	case StatusInProgress:
		stamp = `, called_at = NOW()`
	case StatusCompleted:
		stamp = `, completed_at = NOW()`
	case StatusCancelled, StatusNoShow:
		stamp = `, cancelled_at = NOW()`
	}

	tag, err := r.conn(ctx).Exec(ctx,
		fmt.Sprintf(`UPDATE appointment SET status = $1%s, updated_at = NOW() WHERE id = $2 AND status = $3`, stamp),
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetNotes(ctx context.Context, id uuid.UUID, notes string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET notes = $2, updated_at = NOW() WHERE id = $1`, id, notes)
	return err
}

func (r *repoPG) ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time, statuses []string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE doctor_id = $1 AND date = $2 AND status = ANY($3)
		ORDER BY check_in_seq NULLS LAST, token_number`,
		doctorID, date, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) ListActive(ctx context.Context, date time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointment
		WHERE date = $1 AND status = ANY($2)
		ORDER BY check_in_seq`,
		date, []string{StatusCheckedIn, StatusInProgress})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE patient_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE doctor_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}
