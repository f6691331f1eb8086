package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription maps to the prescription table. Prior authorization requests
// hydrate their medication and prescriber fields from these records.
type Prescription struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Strength       *string   `db:"strength" json:"strength,omitempty"`
	Quantity       *string   `db:"quantity" json:"quantity,omitempty"`
	Sig            *string   `db:"sig" json:"sig,omitempty"`
	PrescriberID   *string   `db:"prescriber_id" json:"prescriber_id,omitempty"`
	PrescriberNPI  *string   `db:"prescriber_npi" json:"prescriber_npi,omitempty"`
	PrescriberName *string   `db:"prescriber_name" json:"prescriber_name,omitempty"`
	WrittenAt      time.Time `db:"written_at" json:"written_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
