package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Medicine maps to the medicine table.
type Medicine struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	GenericName  *string   `db:"generic_name" json:"generic_name,omitempty"`
	Manufacturer *string   `db:"manufacturer" json:"manufacturer,omitempty"`
	DosageForm   *string   `db:"dosage_form" json:"dosage_form,omitempty"`
	Strength     *string   `db:"strength" json:"strength,omitempty"`
	UnitPrice    *float64  `db:"unit_price" json:"unit_price,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LabTest maps to the lab_test table.
type LabTest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        *string   `db:"code" json:"code,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       *float64  `db:"price" json:"price,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
