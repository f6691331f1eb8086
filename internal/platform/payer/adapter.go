// Package payer abstracts communication with insurance payer systems for
// prior authorization. Each payer integration implements Adapter; the
// Registry maps payer names to adapters and falls back to the manual
// adapter when no electronic integration exists.
package payer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Disposition is the payer-side outcome of a submission or status check.
// Values mirror the request lifecycle statuses the payer can drive.
type Disposition string

const (
	DispositionSubmitted Disposition = "submitted"
	DispositionApproved  Disposition = "approved"
	DispositionDenied    Disposition = "denied"
	DispositionNeedsInfo Disposition = "needs_info"
	DispositionError     Disposition = "error"
)

// ValidDisposition reports whether d is one of the dispositions an adapter
// is allowed to return. Anything else is treated as an integration fault.
func ValidDisposition(d Disposition) bool {
	switch d {
	case DispositionSubmitted, DispositionApproved, DispositionDenied,
		DispositionNeedsInfo, DispositionError:
		return true
	}
	return false
}

// SubmitRequest carries everything an adapter needs to file a prior
// authorization request with a payer.
type SubmitRequest struct {
	RequestID      string          `json:"request_id"`
	TenantID       string          `json:"tenant_id"`
	PayerName      string          `json:"payer_name"`
	PatientID      string          `json:"patient_id"`
	PrescriptionID string          `json:"prescription_id"`
	MedicationName string          `json:"medication_name,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Attachments    []Attachment    `json:"attachments,omitempty"`
}

// Attachment is a document reference forwarded to the payer alongside
// the clinical payload.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SubmitResult is the payer's acknowledgement of a submission.
type SubmitResult struct {
	// ExternalRef is the payer's tracking identifier for the request.
	ExternalRef string
	Disposition Disposition
	// Note is a human-readable message from the payer, if any.
	Note string
	// RequestPayload is the normalized payload the adapter actually sent,
	// stored verbatim for audit.
	RequestPayload json.RawMessage
	// ResponsePayload is the payer's raw response, stored verbatim for audit.
	ResponsePayload json.RawMessage
	// EstimatedDecisionAt is the payer's estimate of when a decision will be
	// available, when the payer provides one.
	EstimatedDecisionAt *time.Time
}

// StatusResult is the payer's current view of a previously submitted request.
type StatusResult struct {
	Disposition     Disposition
	Note            string
	ResponsePayload json.RawMessage
	LastUpdated     time.Time
}

// Adapter is a payer integration. Submit files a new request; CheckStatus
// polls for the current disposition of a previously submitted one.
type Adapter interface {
	// Name identifies the adapter in logs and the payer directory.
	Name() string
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	CheckStatus(ctx context.Context, requestID, externalRef string) (*StatusResult, error)
}

// Error wraps a payer-side failure so callers can distinguish integration
// faults from local errors.
type Error struct {
	Payer string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payer %s: %s: %v", e.Payer, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
