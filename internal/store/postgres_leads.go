package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// leadInsertChunk keeps multi-row inserts well under the 65535 bind
// parameter limit of the Postgres protocol.
const leadInsertChunk = 1000

const leadSelect = `
SELECT l.id, l.campaign_id, l.name, l.company, l.phone, l.email, l.status,
       l.assigned_agent_id, COALESCE(u.name, ''), l.last_activity, l.created_at, l.updated_at
FROM leads l
LEFT JOIN users u ON u.id = l.assigned_agent_id`

func scanLead(r rowScanner) (Lead, error) {
	var l Lead
	var agent sql.NullInt64
	err := r.Scan(&l.ID, &l.CampaignID, &l.Name, &l.Company, &l.Phone, &l.Email, &l.Status,
		&agent, &l.AgentName, &l.LastActivity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lead{}, err
	}
	l.AssignedAgentID = ptrInt64(agent)
	return l, nil
}

// InsertLeads writes leads with multi-row INSERTs. Callers that need
// all-or-nothing semantics run it inside WithTransaction.
func (p *pgQueries) InsertLeads(ctx context.Context, leads []Lead) (int, error) {
	inserted := 0
	for start := 0; start < len(leads); start += leadInsertChunk {
		end := start + leadInsertChunk
		if end > len(leads) {
			end = len(leads)
		}

		var a args
		values := make([]string, 0, end-start)
		for _, l := range leads[start:end] {
			values = append(values, "("+strings.Join([]string{
				a.add(l.CampaignID),
				a.add(l.Name),
				a.add(l.Company),
				a.add(l.Phone),
				a.add(l.Email),
				a.add(l.Status),
				a.add(nullInt64(l.AssignedAgentID)),
				a.add(l.LastActivity),
				a.add(l.CreatedAt),
				a.add(l.UpdatedAt),
			}, ", ")+")")
		}
		q := `
INSERT INTO leads (campaign_id, name, company, phone, email, status, assigned_agent_id, last_activity, created_at, updated_at)
VALUES ` + strings.Join(values, ", ")

		res, err := p.q.ExecContext(ctx, q, a...)
		if err != nil {
			return inserted, mapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (p *pgQueries) CreateLead(ctx context.Context, l Lead) (Lead, error) {
	const q = `
INSERT INTO leads (campaign_id, name, company, phone, email, status, assigned_agent_id, last_activity, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`
	var id int64
	err := p.q.QueryRowContext(ctx, q, l.CampaignID, l.Name, l.Company, l.Phone, l.Email, l.Status,
		nullInt64(l.AssignedAgentID), l.LastActivity, l.CreatedAt, l.UpdatedAt).Scan(&id)
	if err != nil {
		return Lead{}, mapErr(err)
	}
	return p.GetLead(ctx, id)
}

func (p *pgQueries) GetLead(ctx context.Context, id int64) (Lead, error) {
	l, err := scanLead(p.q.QueryRowContext(ctx, leadSelect+` WHERE l.id = $1`, id))
	if err != nil {
		return Lead{}, mapErr(err)
	}
	return l, nil
}

func (p *pgQueries) ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error) {
	var a args
	var conds []string
	if f.CampaignID != 0 {
		conds = append(conds, "l.campaign_id = "+a.add(f.CampaignID))
	}
	if f.AgentID != 0 {
		conds = append(conds, "l.assigned_agent_id = "+a.add(f.AgentID))
	}
	if f.Status != "" {
		conds = append(conds, "l.status = "+a.add(f.Status))
	}
	q := leadSelect
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY l.created_at DESC, l.id DESC`

	rows, err := p.q.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *pgQueries) UpdateLeadStatus(ctx context.Context, id int64, status, lastActivity string, at time.Time) error {
	const q = `UPDATE leads SET status = $2, last_activity = $3, updated_at = $4 WHERE id = $1`
	return expectOne(p.q.ExecContext(ctx, q, id, status, lastActivity, at))
}

func (p *pgQueries) TouchLead(ctx context.Context, id int64, lastActivity string, at time.Time) error {
	const q = `UPDATE leads SET last_activity = $2, updated_at = $3 WHERE id = $1`
	return expectOne(p.q.ExecContext(ctx, q, id, lastActivity, at))
}

func (p *pgQueries) AgentLeadCounts(ctx context.Context, todayFrom, todayTo time.Time) ([]AgentLeadCounts, error) {
	const q = `
SELECT u.id, u.name,
       COUNT(l.id),
       COUNT(l.id) FILTER (WHERE l.status = 'Interested'),
       COUNT(l.id) FILTER (WHERE l.status = 'New Lead'),
       COUNT(l.id) FILTER (WHERE l.status = 'Call Back'),
       COUNT(l.id) FILTER (WHERE l.status = 'Converted'),
       COUNT(l.id) FILTER (WHERE l.status <> 'New Lead'),
       COUNT(l.id) FILTER (WHERE l.created_at >= $1 AND l.created_at < $2)
FROM users u
LEFT JOIN leads l ON l.assigned_agent_id = u.id
WHERE u.role = 'agent'
GROUP BY u.id, u.name
ORDER BY u.name, u.id`
	rows, err := p.q.QueryContext(ctx, q, todayFrom, todayTo)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]AgentLeadCounts, 0)
	for rows.Next() {
		var c AgentLeadCounts
		if err := rows.Scan(&c.AgentID, &c.Name, &c.Total, &c.Interested, &c.Fresh, &c.CallBack, &c.Converted, &c.Contacted, &c.Today); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *pgQueries) RecentLeadLogs(ctx context.Context, agentID int64, limit int) ([]LeadLog, error) {
	const q = `
SELECT l.id, l.name, l.company, l.phone,
       MAX(la.created_at),
       COALESCE((
           SELECT la2.title FROM lead_activities la2
           WHERE la2.lead_id = l.id AND la2.user_id = $1
           ORDER BY la2.created_at DESC, la2.id DESC
           LIMIT 1
       ), 'No Activity')
FROM leads l
LEFT JOIN lead_activities la ON la.lead_id = l.id AND la.user_id = $1
WHERE l.assigned_agent_id = $1
GROUP BY l.id
ORDER BY MAX(la.created_at) DESC NULLS LAST, l.id DESC
LIMIT $2`
	rows, err := p.q.QueryContext(ctx, q, agentID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]LeadLog, 0)
	for rows.Next() {
		var lg LeadLog
		var last sql.NullTime
		if err := rows.Scan(&lg.LeadID, &lg.Name, &lg.Company, &lg.Phone, &last, &lg.Status); err != nil {
			return nil, err
		}
		lg.LastAt = ptrTime(last)
		out = append(out, lg)
	}
	return out, rows.Err()
}
