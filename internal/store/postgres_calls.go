package store

import (
	"context"
	"database/sql"
)

func (p *pgQueries) InsertCallStat(ctx context.Context, c CallStat) (CallStat, error) {
	const q = `
INSERT INTO call_stats (user_id, campaign_id, type, connected, duration, called_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	if err := p.q.QueryRowContext(ctx, q, c.UserID, nullInt64(c.CampaignID), c.Type, c.Connected, c.Duration, c.CalledAt).Scan(&c.ID); err != nil {
		return CallStat{}, mapErr(err)
	}
	return c, nil
}

const callAggregates = `
       COUNT(cs.id),
       COUNT(cs.id) FILTER (WHERE cs.connected),
       COUNT(cs.id) FILTER (WHERE cs.type = 'missed'),
       COALESCE(SUM(cs.duration), 0),
       MIN(cs.called_at),
       MAX(cs.called_at)`

func scanTotals(dest []any, t *CallTotals) []any {
	return append(dest, &t.Total, &t.Connected, &t.Missed, &t.TotalDuration)
}

func (p *pgQueries) CallTotals(ctx context.Context, f CallFilter) (CallTotals, error) {
	var a args
	q := `SELECT` + callAggregates + ` FROM call_stats cs`
	if conds := callConds(f, "cs", &a); conds != "" {
		q += ` WHERE ` + conds
	}

	var t CallTotals
	var first, last sql.NullTime
	dest := append(scanTotals(nil, &t), &first, &last)
	if err := p.q.QueryRowContext(ctx, q, a...).Scan(dest...); err != nil {
		return CallTotals{}, mapErr(err)
	}
	t.FirstCall = ptrTime(first)
	t.LastCall = ptrTime(last)
	return t, nil
}

// AgentCallTotals left-joins call stats onto agents so agents without calls
// are reported with zero counts. f.UserID narrows the agent set rather than
// the join.
func (p *pgQueries) AgentCallTotals(ctx context.Context, f CallFilter) ([]AgentCallTotals, error) {
	var a args
	userID := f.UserID
	f.UserID = 0

	q := `SELECT u.id, u.name, u.accepting_calls,` + callAggregates + `
FROM users u
LEFT JOIN call_stats cs ON cs.user_id = u.id`
	if conds := callConds(f, "cs", &a); conds != "" {
		q += ` AND ` + conds
	}
	q += ` WHERE u.role = 'agent'`
	if userID != 0 {
		q += ` AND u.id = ` + a.add(userID)
	}
	q += ` GROUP BY u.id, u.name, u.accepting_calls ORDER BY u.name, u.id`

	rows, err := p.q.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]AgentCallTotals, 0)
	for rows.Next() {
		var r AgentCallTotals
		var first, last sql.NullTime
		dest := append(scanTotals([]any{&r.AgentID, &r.Name, &r.AcceptingCalls}, &r.CallTotals), &first, &last)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.FirstCall = ptrTime(first)
		r.LastCall = ptrTime(last)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *pgQueries) CampaignCallBuckets(ctx context.Context, f CallFilter) ([]CampaignBucket, error) {
	var a args
	q := `SELECT cs.campaign_id, COUNT(*), COUNT(*) FILTER (WHERE cs.connected) FROM call_stats cs`
	if conds := callConds(f, "cs", &a); conds != "" {
		q += ` WHERE ` + conds
	}
	q += ` GROUP BY cs.campaign_id`

	rows, err := p.q.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]CampaignBucket, 0)
	for rows.Next() {
		var b CampaignBucket
		var cid sql.NullInt64
		if err := rows.Scan(&cid, &b.Total, &b.Answered); err != nil {
			return nil, err
		}
		b.CampaignID = ptrInt64(cid)
		out = append(out, b)
	}
	return out, rows.Err()
}
