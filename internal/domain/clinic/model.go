package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic maps to the clinic table. DefaultConsultMinutes is the clinic-wide
// average consultation duration used for wait estimates unless a doctor
// carries an override.
type Clinic struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Address               *string   `db:"address" json:"address,omitempty"`
	City                  *string   `db:"city" json:"city,omitempty"`
	Phone                 *string   `db:"phone" json:"phone,omitempty"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	OpeningTime           *string   `db:"opening_time" json:"opening_time,omitempty"`
	ClosingTime           *string   `db:"closing_time" json:"closing_time,omitempty"`
	DefaultConsultMinutes *int      `db:"default_consult_minutes" json:"default_consult_minutes,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
