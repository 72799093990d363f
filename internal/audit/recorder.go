package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink receives a copy of every recorded entry, e.g. an external SIEM
// forwarder. Delivery is fire-and-forget.
type Sink interface {
	Emit(ctx context.Context, entry Entry) error
}

// Recorder appends entries to the authz_audit_log table. Record never fails
// from the caller's perspective: audit failure must not block the
// administration operation that triggered it, so errors are logged to the
// operational channel and swallowed.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	sink   Sink
}

// NewRecorder constructs a Recorder. sink may be nil.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger, sink Sink) *Recorder {
	return &Recorder{pool: pool, logger: logger, sink: sink}
}

// Record persists one entry and forwards it to the configured sink.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if r.pool != nil {
		metaJSON, err := json.Marshal(entry.Meta)
		if err != nil {
			metaJSON = []byte("{}")
		}
		const q = `INSERT INTO authz_audit_log
			(action, actor_id, actor_kind, role_id, permission_id, scope, acting_user, meta, occurred_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`
		_, err = r.pool.Exec(ctx, q,
			string(entry.Action), entry.ActorID, entry.ActorKind,
			entry.RoleID, entry.PermissionID, entry.Scope,
			entry.ActingUser, metaJSON, entry.OccurredAt,
		)
		if err != nil && r.logger != nil {
			r.logger.Error("audit record", slog.String("action", string(entry.Action)), slog.Any("error", err))
		}
	}
	if r.sink != nil {
		go func(e Entry) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.sink.Emit(ctx, e); err != nil && r.logger != nil {
				r.logger.Warn("audit sink emit", slog.String("action", string(e.Action)), slog.Any("error", err))
			}
		}(entry)
	}
}
