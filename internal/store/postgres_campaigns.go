package store

import (
	"context"
	"database/sql"
	"strings"
)

const campaignColumns = `c.id, c.name, c.description, c.demographics, c.start_date, c.end_date, c.status, c.called, c.created_at`

func scanCampaign(r rowScanner, extra ...any) (Campaign, error) {
	var c Campaign
	var start, end sql.NullTime
	dest := append([]any{&c.ID, &c.Name, &c.Description, &c.Demographics, &start, &end, &c.Status, &c.Called, &c.CreatedAt}, extra...)
	if err := r.Scan(dest...); err != nil {
		return Campaign{}, err
	}
	c.StartDate = ptrTime(start)
	c.EndDate = ptrTime(end)
	return c, nil
}

func (p *pgQueries) CreateCampaign(ctx context.Context, c Campaign) (Campaign, error) {
	const q = `
INSERT INTO campaigns AS c (name, description, demographics, start_date, end_date, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + campaignColumns
	out, err := scanCampaign(p.q.QueryRowContext(ctx, q, c.Name, c.Description, c.Demographics, nullTime(c.StartDate), nullTime(c.EndDate), c.Status))
	if err != nil {
		return Campaign{}, mapErr(err)
	}
	return out, nil
}

func (p *pgQueries) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `,
       (SELECT COUNT(*) FROM campaign_agents ca WHERE ca.campaign_id = c.id) AS agent_count
FROM campaigns c
WHERE c.id = $1`
	var n int
	c, err := scanCampaign(p.q.QueryRowContext(ctx, q, id), &n)
	if err != nil {
		return Campaign{}, mapErr(err)
	}
	c.AgentCount = n
	return c, nil
}

func (p *pgQueries) ListCampaigns(ctx context.Context, f CampaignFilter) ([]Campaign, error) {
	var a args
	q := `
SELECT ` + campaignColumns + `,
       (SELECT COUNT(*) FROM campaign_agents ca WHERE ca.campaign_id = c.id) AS agent_count
FROM campaigns c`
	if f.AgentID != 0 {
		q += ` WHERE EXISTS (SELECT 1 FROM campaign_agents f WHERE f.campaign_id = c.id AND f.agent_id = ` + a.add(f.AgentID) + `)`
	}
	q += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := p.q.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]Campaign, 0)
	for rows.Next() {
		var n int
		c, err := scanCampaign(rows, &n)
		if err != nil {
			return nil, err
		}
		c.AgentCount = n
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *pgQueries) UpdateCampaignStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE campaigns SET status = $2 WHERE id = $1`
	return expectOne(p.q.ExecContext(ctx, q, id, status))
}

func (p *pgQueries) AddCampaignAgents(ctx context.Context, campaignID int64, agentIDs []int64) error {
	if len(agentIDs) == 0 {
		return nil
	}
	var a args
	cid := a.add(campaignID)
	values := make([]string, 0, len(agentIDs))
	for _, id := range agentIDs {
		values = append(values, "("+cid+", "+a.add(id)+")")
	}
	q := `INSERT INTO campaign_agents (campaign_id, agent_id) VALUES ` + strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
	_, err := p.q.ExecContext(ctx, q, a...)
	return mapErr(err)
}

func (p *pgQueries) AddCampaignTags(ctx context.Context, campaignID int64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	var a args
	cid := a.add(campaignID)
	values := make([]string, 0, len(tags))
	for _, t := range tags {
		values = append(values, "("+cid+", "+a.add(t)+")")
	}
	q := `INSERT INTO campaign_tags (campaign_id, tag) VALUES ` + strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
	_, err := p.q.ExecContext(ctx, q, a...)
	return mapErr(err)
}

func (p *pgQueries) ListCampaignAgents(ctx context.Context, campaignID int64) ([]User, error) {
	const q = `
SELECT u.id, u.name, u.email, u.password_hash, u.phone, u.team, u.role, u.accepting_calls, u.created_at
FROM campaign_agents ca
JOIN users u ON u.id = ca.agent_id
WHERE ca.campaign_id = $1
ORDER BY u.id`
	rows, err := p.q.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *pgQueries) ListCampaignTags(ctx context.Context, campaignID int64) ([]string, error) {
	const q = `SELECT tag FROM campaign_tags WHERE campaign_id = $1 ORDER BY tag`
	rows, err := p.q.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *pgQueries) EligibleAgentIDs(ctx context.Context, campaignID int64) ([]int64, error) {
	const q = `
SELECT u.id
FROM campaign_agents ca
JOIN users u ON u.id = ca.agent_id
WHERE ca.campaign_id = $1 AND u.role = 'agent' AND u.accepting_calls
ORDER BY u.id`
	rows, err := p.q.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *pgQueries) IsCampaignAgent(ctx context.Context, campaignID, agentID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM campaign_agents WHERE campaign_id = $1 AND agent_id = $2)`
	var ok bool
	if err := p.q.QueryRowContext(ctx, q, campaignID, agentID).Scan(&ok); err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (p *pgQueries) CountCampaigns(ctx context.Context, status string) (int, error) {
	var a args
	q := `SELECT COUNT(*) FROM campaigns`
	if status != "" {
		q += ` WHERE status = ` + a.add(status)
	}
	var n int
	if err := p.q.QueryRowContext(ctx, q, a...).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (p *pgQueries) ListCampaignIDs(ctx context.Context) ([]int64, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT id FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CountCampaignCalls is the full recount behind campaigns.called.
func (p *pgQueries) CountCampaignCalls(ctx context.Context, campaignID int64) (int, error) {
	const q = `
SELECT COUNT(*)
FROM lead_activities la
JOIN leads l ON l.id = la.lead_id
WHERE l.campaign_id = $1 AND la.type = 'call'`
	var n int
	if err := p.q.QueryRowContext(ctx, q, campaignID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (p *pgQueries) SetCampaignCalled(ctx context.Context, campaignID int64, called int) error {
	const q = `UPDATE campaigns SET called = $2 WHERE id = $1`
	return expectOne(p.q.ExecContext(ctx, q, campaignID, called))
}
