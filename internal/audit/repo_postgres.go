package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends to audit_events. It has no UPDATE or DELETE paths.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, ip_address, campaign_id, target_user_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	actor := sql.NullInt64{Int64: e.ActorUserID, Valid: e.ActorUserID != 0}
	_, err := r.db.ExecContext(ctx, q, e.ID, string(e.Type), actor, e.ActorRole, e.IPAddress,
		nullID(e.CampaignID), nullID(e.TargetUserID), e.Message, e.Metadata, e.CreatedAt)
	return err
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	const q = `
SELECT id, type, COALESCE(actor_user_id, 0), actor_role, ip_address, campaign_id, target_user_id, message, metadata, created_at
FROM audit_events
ORDER BY created_at DESC
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var typ string
		var campaign, target sql.NullInt64
		if err := rows.Scan(&e.ID, &typ, &e.ActorUserID, &e.ActorRole, &e.IPAddress, &campaign, &target, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		e.CampaignID = ptrID(campaign)
		e.TargetUserID = ptrID(target)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullID(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
