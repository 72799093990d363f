package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads the audit trail from PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository constructs a repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

const selectColumns = `SELECT id, action, actor_id, actor_kind, role_id, permission_id, COALESCE(scope, ''), acting_user, meta, occurred_at FROM authz_audit_log`

// Window returns one page, timestamp ascending.
func (r *PgRepository) Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error) {
	where, args := buildFilters(filters)
	query := fmt.Sprintf("%s%s ORDER BY occurred_at ASC, id ASC OFFSET $%d LIMIT $%d",
		selectColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, limit)
	return r.query(ctx, query, args)
}

// All returns every matching entry, timestamp ascending.
func (r *PgRepository) All(ctx context.Context, filters Filters) ([]Entry, error) {
	where, args := buildFilters(filters)
	query := selectColumns + where + " ORDER BY occurred_at ASC, id ASC"
	return r.query(ctx, query, args)
}

func buildFilters(filters Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filters.ActorID != "" {
		add("actor_id = $%d", filters.ActorID)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *PgRepository) query(ctx context.Context, query string, args []any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry    Entry
		action   string
		metaJSON []byte
		occurred time.Time
	)
	if err := row.Scan(&entry.ID, &action, &entry.ActorID, &entry.ActorKind, &entry.RoleID, &entry.PermissionID, &entry.Scope, &entry.ActingUser, &metaJSON, &occurred); err != nil {
		return Entry{}, err
	}
	entry.Action = Action(action)
	entry.OccurredAt = occurred
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &entry.Meta)
	}
	return entry, nil
}
