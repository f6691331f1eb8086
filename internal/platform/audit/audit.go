package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medloop/pa-api/internal/platform/db"
)

// Entry is a single audit trail record describing who did what to which resource.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenant_id"`
	ActorID      string    `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Detail       string    `json:"detail,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Sink records audit entries. Implementations must not block request handling
// on audit failures.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// PGSink writes audit entries to the audit_log table. Write failures are
// logged and swallowed so audit problems never fail the originating request.
type PGSink struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPGSink creates a database-backed audit sink.
func NewPGSink(pool *pgxpool.Pool, logger zerolog.Logger) *PGSink {
	return &PGSink{pool: pool, logger: logger}
}

// Record writes the entry to the shared audit_log table. It uses the
// tenant-scoped connection from context when available, falling back to
// pool.Acquire. The table is schema-qualified because the fallback
// connection has no tenant search_path.
func (s *PGSink) Record(ctx context.Context, entry Entry) {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO shared.audit_log (
			tenant_id, actor_id, action, resource_type, resource_id, detail, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	args := []any{
		entry.TenantID, entry.ActorID, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.Detail, entry.RecordedAt,
	}

	err := s.exec(ctx, query, args)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("action", entry.Action).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Msg("audit write failed")
	}
}

func (s *PGSink) exec(ctx context.Context, query string, args []any) error {
	if conn := db.ConnFromContext(ctx); conn != nil {
		_, err := conn.Exec(ctx, query, args...)
		return err
	}

	poolConn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("audit: acquire connection: %w", err)
	}
	defer poolConn.Release()

	_, err = poolConn.Exec(ctx, query, args...)
	return err
}

// LogSink writes audit entries to the structured log only. It backs
// development setups where the audit_log table is not provisioned.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log-only audit sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, entry Entry) {
	s.logger.Info().
		Str("tenant_id", entry.TenantID).
		Str("actor_id", entry.ActorID).
		Str("action", entry.Action).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Msg("audit")
}
