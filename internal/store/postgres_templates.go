package store

import (
	"context"
	"encoding/json"
	"fmt"
)

func scanTemplate(r rowScanner) (Template, error) {
	var t Template
	var raw []byte
	if err := r.Scan(&t.ID, &t.Name, &t.Message, &raw, &t.CreatedAt); err != nil {
		return Template{}, err
	}
	t.Variables = []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Variables); err != nil {
			return Template{}, fmt.Errorf("decode template variables: %w", err)
		}
	}
	return t, nil
}

func (p *pgQueries) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return Template{}, err
	}
	const q = `
INSERT INTO message_templates (name, message, variables)
VALUES ($1, $2, $3::jsonb)
RETURNING id, name, message, variables, created_at`
	out, err := scanTemplate(p.q.QueryRowContext(ctx, q, t.Name, t.Message, string(raw)))
	if err != nil {
		return Template{}, mapErr(err)
	}
	return out, nil
}

func (p *pgQueries) GetTemplate(ctx context.Context, id int64) (Template, error) {
	const q = `SELECT id, name, message, variables, created_at FROM message_templates WHERE id = $1`
	t, err := scanTemplate(p.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return Template{}, mapErr(err)
	}
	return t, nil
}

func (p *pgQueries) ListTemplates(ctx context.Context) ([]Template, error) {
	const q = `SELECT id, name, message, variables, created_at FROM message_templates ORDER BY created_at DESC, id DESC`
	rows, err := p.q.QueryContext(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
