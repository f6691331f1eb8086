package priorauth

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows list queries. Nil fields match everything.
type ListFilter struct {
	PatientID *uuid.UUID
	Status    *Status
	Payer     *string
}

// Repository persists prior authorization requests and their history
// ledger. Methods that change status take the history entry alongside the
// record so the status write and the ledger append land in one transaction.
// Missing records surface as *NotFoundError.
type Repository interface {
	// Create persists a new request together with its initial history entry.
	Create(ctx context.Context, r *PriorAuthRequest, entry *HistoryEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*PriorAuthRequest, error)

	List(ctx context.Context, f ListFilter, limit, offset int) ([]*PriorAuthRequest, int, error)

	History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error)

	// MarkSubmitted persists a submit result iff the stored status is still
	// pending, appending entry in the same transaction. Returns
	// errSubmitConflict when the pending guard matches zero rows.
	MarkSubmitted(ctx context.Context, r *PriorAuthRequest, entry *HistoryEntry) error

	// Reconcile persists a payer-reported status change together with entry.
	Reconcile(ctx context.Context, r *PriorAuthRequest, entry *HistoryEntry) error

	// Update persists a manual field update together with entry.
	Update(ctx context.Context, r *PriorAuthRequest, entry *HistoryEntry) error
}
