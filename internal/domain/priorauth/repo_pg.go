package priorauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medloop/pa-api/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed repository. Queries run on the
// transaction or tenant-scoped connection from context when present.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const requestCols = `id, tenant_id, patient_id, prescription_id,
	medication_name, strength, quantity, sig,
	payer, member_id, external_ref,
	prescriber_id, prescriber_npi, prescriber_name,
	status, status_reason, request_payload, response_payload, attachments,
	created_at, updated_at`

func (r *repoPG) scanRequest(row pgx.Row) (*PriorAuthRequest, error) {
	var req PriorAuthRequest
	var attachments []byte
	err := row.Scan(&req.ID, &req.TenantID, &req.PatientID, &req.PrescriptionID,
		&req.MedicationName, &req.Strength, &req.Quantity, &req.Sig,
		&req.Payer, &req.MemberID, &req.ExternalRef,
		&req.PrescriberID, &req.PrescriberNPI, &req.PrescriberName,
		&req.Status, &req.StatusReason, &req.RequestPayload, &req.ResponsePayload, &attachments,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &req.Attachments); err != nil {
			return nil, fmt.Errorf("decoding attachments: %w", err)
		}
	}
	return &req, nil
}

func encodeAttachments(attachments []Attachment) ([]byte, error) {
	if attachments == nil {
		attachments = []Attachment{}
	}
	return json.Marshal(attachments)
}

func (r *repoPG) appendHistory(ctx context.Context, requestID uuid.UUID, entry *HistoryEntry) error {
	// Seq is derived inside the transaction so appends for one request are
	// strictly ordered and never rewritten.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pa_request_history (request_id, seq, event, status, actor_id, notes, external_ref)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6
		FROM pa_request_history WHERE request_id = $1
		RETURNING seq, created_at`,
		requestID, entry.Event, entry.Status, entry.ActorID, entry.Notes, entry.ExternalRef).
		Scan(&entry.Seq, &entry.CreatedAt)
}

func (r *repoPG) Create(ctx context.Context, req *PriorAuthRequest, entry *HistoryEntry) error {
	req.ID = uuid.New()

	attachments, err := encodeAttachments(req.Attachments)
	if err != nil {
		return err
	}

	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO pa_request (id, tenant_id, patient_id, prescription_id,
				medication_name, strength, quantity, sig,
				payer, member_id, external_ref,
				prescriber_id, prescriber_npi, prescriber_name,
				status, status_reason, request_payload, response_payload, attachments)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			RETURNING created_at, updated_at`,
			req.ID, req.TenantID, req.PatientID, req.PrescriptionID,
			req.MedicationName, req.Strength, req.Quantity, req.Sig,
			req.Payer, req.MemberID, req.ExternalRef,
			req.PrescriberID, req.PrescriberNPI, req.PrescriberName,
			req.Status, req.StatusReason, req.RequestPayload, req.ResponsePayload, attachments).
			Scan(&req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return err
		}
		return r.appendHistory(ctx, req.ID, entry)
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PriorAuthRequest, error) {
	req, err := r.scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM pa_request WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "prior authorization request", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*PriorAuthRequest, int, error) {
	where := ""
	args := []interface{}{}
	n := 0

	addCond := func(cond string, val interface{}) {
		n++
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, n)
		args = append(args, val)
	}

	if f.PatientID != nil {
		addCond("patient_id = $%d", *f.PatientID)
	}
	if f.Status != nil {
		addCond("status = $%d", *f.Status)
	}
	if f.Payer != nil {
		addCond("payer = $%d", *f.Payer)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pa_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+requestCols+` FROM pa_request%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*PriorAuthRequest{}
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

func (r *repoPG) History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT seq, event, status, actor_id, notes, external_ref, created_at
		FROM pa_request_history WHERE request_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Seq, &e.Event, &e.Status, &e.ActorID, &e.Notes, &e.ExternalRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repoPG) MarkSubmitted(ctx context.Context, req *PriorAuthRequest, entry *HistoryEntry) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		// Conditional update guards against two concurrent submits: only one
		// caller can move the row off pending.
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE pa_request
			SET status = $2, status_reason = $3,
				external_ref = COALESCE(external_ref, $4),
				request_payload = $5, response_payload = $6,
				updated_at = NOW()
			WHERE id = $1 AND status = 'pending'`,
			req.ID, req.Status, req.StatusReason, req.ExternalRef,
			req.RequestPayload, req.ResponsePayload)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errSubmitConflict
		}
		return r.appendHistory(ctx, req.ID, entry)
	})
}

func (r *repoPG) Reconcile(ctx context.Context, req *PriorAuthRequest, entry *HistoryEntry) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE pa_request
			SET status = $2, status_reason = $3, response_payload = $4, updated_at = NOW()
			WHERE id = $1`,
			req.ID, req.Status, req.StatusReason, req.ResponsePayload)
		if err != nil {
			return err
		}
		return r.appendHistory(ctx, req.ID, entry)
	})
}

func (r *repoPG) Update(ctx context.Context, req *PriorAuthRequest, entry *HistoryEntry) error {
	attachments, err := encodeAttachments(req.Attachments)
	if err != nil {
		return err
	}

	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE pa_request
			SET status = $2, status_reason = $3, attachments = $4, updated_at = NOW()
			WHERE id = $1`,
			req.ID, req.Status, req.StatusReason, attachments)
		if err != nil {
			return err
		}
		return r.appendHistory(ctx, req.ID, entry)
	})
}
