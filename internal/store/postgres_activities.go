package store

import (
	"context"
	"database/sql"
	"time"
)

func (p *pgQueries) InsertActivity(ctx context.Context, a Activity) (Activity, error) {
	const q = `
INSERT INTO lead_activities (lead_id, type, title, description, user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	user := sql.NullInt64{Int64: a.UserID, Valid: a.UserID != 0}
	if err := p.q.QueryRowContext(ctx, q, a.LeadID, a.Type, a.Title, a.Description, user, a.CreatedAt).Scan(&a.ID); err != nil {
		return Activity{}, mapErr(err)
	}
	return a, nil
}

func (p *pgQueries) ListActivities(ctx context.Context, leadID int64) ([]Activity, error) {
	const q = `
SELECT la.id, la.lead_id, la.type, la.title, la.description, COALESCE(la.user_id, 0), COALESCE(u.name, ''), la.created_at
FROM lead_activities la
LEFT JOIN users u ON u.id = la.user_id
WHERE la.lead_id = $1
ORDER BY la.created_at DESC, la.id DESC`
	rows, err := p.q.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.Description, &a.UserID, &a.UserName, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *pgQueries) CountActivities(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM lead_activities WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`
	var n int
	if err := p.q.QueryRowContext(ctx, q, userID, from, to).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}
