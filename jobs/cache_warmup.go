package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	jobmetrics "github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/jobs"
)

// CacheWarmupPayload carries scheduling metadata.
type CacheWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewCacheWarmupTask constructs an Asynq task that pre-populates the
// permission cache for every actor holding an active grant.
func NewCacheWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CacheWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, body, asynq.Queue(QueueDefault)), nil
}

// NewCacheWarmupHandler builds the handler for TaskCacheWarmup. Warming is
// best effort: a failed read for one actor does not abort the run.
func NewCacheWarmupHandler(pool *pgxpool.Pool, cache *authz.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CacheWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("cache_warmup")
		actors, err := activeActors(ctx, pool)
		if err != nil {
			logger.Error("cache warmup: list actors", slog.Any("error", err))
			return tracker.End(err)
		}
		for _, actor := range actors {
			cache.Permissions(ctx, actor, authz.ScopeGlobal)
		}
		metrics.AddItems("cache_warmup", len(actors))
		logger.Info("cache warmup complete", slog.Int("actors", len(actors)))
		return tracker.End(nil)
	}
}

// activeActors returns every distinct actor with at least one active role or
// direct permission grant.
func activeActors(ctx context.Context, pool *pgxpool.Pool) ([]authz.ActorRef, error) {
	const q = `SELECT actor_id, actor_kind FROM actor_roles WHERE revoked_at IS NULL
UNION
SELECT actor_id, actor_kind FROM actor_permissions WHERE revoked_at IS NULL`
	rows, err := pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []authz.ActorRef
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, err
		}
		out = append(out, authz.ActorRef{ID: id, Kind: authz.ActorKind(kind)})
	}
	return out, rows.Err()
}
