package priorauth

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is a prior authorization request's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusNeedsInfo Status = "needs_info"
	StatusError     Status = "error"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusDenied, StatusNeedsInfo, StatusError:
		return true
	}
	return false
}

// overridableStatuses are the statuses a manual update may set. Operators
// record payer decisions received by phone or fax through this set.
var overridableStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusDenied:    true,
	StatusNeedsInfo: true,
}

// Overridable reports whether s may be set through the manual update path.
func Overridable(s Status) bool { return overridableStatuses[s] }

// History event names.
const (
	EventCreated     = "created"
	EventSubmitted   = "submitted"
	EventStatusCheck = "status_check"
	EventUpdated     = "updated"
)

// Attachment is a supporting document on a prior authorization request.
// Attachments live as an ordered JSONB list on the request row and are
// replaced wholesale by update.
type Attachment struct {
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HistoryEntry is one event in a request's append-only lifecycle ledger.
// Entries are ordered by Seq within a request and are never rewritten.
type HistoryEntry struct {
	Seq         int       `db:"seq" json:"seq"`
	Event       string    `db:"event" json:"event"`
	Status      Status    `db:"status" json:"status"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	ExternalRef *string   `db:"external_ref" json:"external_reference_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"timestamp"`
}

// PriorAuthRequest maps to the pa_request table.
type PriorAuthRequest struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID string    `db:"tenant_id" json:"tenant_id"`

	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	PrescriptionID *uuid.UUID `db:"prescription_id" json:"prescription_id,omitempty"`
	MedicationName string     `db:"medication_name" json:"medication_name"`
	Strength       *string    `db:"strength" json:"strength,omitempty"`
	Quantity       *string    `db:"quantity" json:"quantity,omitempty"`
	Sig            *string    `db:"sig" json:"sig,omitempty"`

	Payer       string  `db:"payer" json:"payer"`
	MemberID    string  `db:"member_id" json:"member_id"`
	ExternalRef *string `db:"external_ref" json:"external_reference_id,omitempty"`

	PrescriberID   *string `db:"prescriber_id" json:"prescriber_id,omitempty"`
	PrescriberNPI  *string `db:"prescriber_npi" json:"prescriber_npi,omitempty"`
	PrescriberName *string `db:"prescriber_name" json:"prescriber_name,omitempty"`

	Status          Status          `db:"status" json:"status"`
	StatusReason    *string         `db:"status_reason" json:"status_reason,omitempty"`
	RequestPayload  json.RawMessage `db:"request_payload" json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `db:"response_payload" json:"response_payload,omitempty"`
	Attachments     []Attachment    `db:"attachments" json:"attachments"`

	// History is loaded from the pa_request_history table on single-record
	// reads; list queries leave it nil.
	History []HistoryEntry `json:"history,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
