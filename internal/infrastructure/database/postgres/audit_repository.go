package postgres

import (
	"context"
	"log/slog"

	"lending-engine/internal/event"
)

// AuditRepository persists consumer failure records. Payloads land in a jsonb
// column so operators can query into the failed message body.
type AuditRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ event.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db DBPool, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger.With("component", "AuditRepository")}
}

func (r *AuditRepository) SaveAuditRecord(ctx context.Context, rec *event.AuditRecord) error {
	sql := `
        INSERT INTO event_audit (id, routing_key, function_name, payload, error, environment, content_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, sql,
		rec.ID, rec.RoutingKey, rec.FunctionName, rec.Payload,
		rec.Error, rec.Environment, rec.ContentHash, rec.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert audit record", "routing_key", rec.RoutingKey, "error", err)
		return translateDBError(err, r.logger)
	}
	return nil
}
