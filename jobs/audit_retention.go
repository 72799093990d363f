package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/jobs"
)

// AuditRetentionPayload sets the retention window for one pruning run.
type AuditRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditRetentionTask constructs an Asynq task that prunes audit entries
// older than the retention window.
func NewAuditRetentionTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, body, asynq.Queue(QueueDefault)), nil
}

// NewAuditRetentionHandler builds the handler for TaskAuditRetention.
func NewAuditRetentionHandler(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditRetentionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("audit_retention")
		cutoff := time.Now().Add(-payload.Retention)
		tag, err := pool.Exec(ctx, `DELETE FROM authz_audit_log WHERE occurred_at < $1`, cutoff)
		if err != nil {
			logger.Error("audit retention", slog.Any("error", err))
			return tracker.End(err)
		}
		pruned := int(tag.RowsAffected())
		metrics.AddItems("audit_retention", pruned)
		logger.Info("audit retention complete",
			slog.Int("pruned", pruned),
			slog.Time("cutoff", cutoff))
		return tracker.End(nil)
	}
}
