package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Phone       string     `db:"phone" json:"phone"`
	Email       *string    `db:"email" json:"email,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctor table. AverageConsultMinutes overrides the
// platform default used for wait estimates when set.
type Doctor struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	ClinicID              uuid.UUID `db:"clinic_id" json:"clinic_id"`
	FullName              string    `db:"full_name" json:"full_name"`
	Specialty             string    `db:"specialty" json:"specialty"`
	Qualification         *string   `db:"qualification" json:"qualification,omitempty"`
	Phone                 *string   `db:"phone" json:"phone,omitempty"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	ConsultationFee       *int      `db:"consultation_fee" json:"consultation_fee,omitempty"`
	AverageConsultMinutes *int      `db:"average_consult_minutes" json:"average_consult_minutes,omitempty"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
