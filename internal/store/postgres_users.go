package store

import (
	"context"
	"strings"
)

const userColumns = `id, name, email, password_hash, phone, team, role, accepting_calls, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var u User
	err := r.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Team, &u.Role, &u.AcceptingCalls, &u.CreatedAt)
	return u, err
}

func (p *pgQueries) CreateUser(ctx context.Context, u User) (User, error) {
	const q = `
INSERT INTO users (name, email, password_hash, phone, team, role, accepting_calls)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns
	out, err := scanUser(p.q.QueryRowContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.Phone, u.Team, u.Role, u.AcceptingCalls))
	if err != nil {
		return User{}, mapErr(err)
	}
	return out, nil
}

func (p *pgQueries) GetUser(ctx context.Context, id int64) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(p.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

func (p *pgQueries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(p.q.QueryRowContext(ctx, q, email))
	if err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

func (p *pgQueries) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	var a args
	var conds []string
	if f.Role != "" {
		conds = append(conds, "role = "+a.add(f.Role))
	}
	if f.Accepting != nil {
		conds = append(conds, "accepting_calls = "+a.add(*f.Accepting))
	}
	q := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY name, id`

	rows, err := p.q.QueryContext(ctx, q, a...)
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

func (p *pgQueries) UpdateUser(ctx context.Context, u User) (User, error) {
	const q = `
UPDATE users
SET name = $2, email = $3, password_hash = $4, phone = $5, team = $6, role = $7, accepting_calls = $8
WHERE id = $1
RETURNING ` + userColumns
	out, err := scanUser(p.q.QueryRowContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Team, u.Role, u.AcceptingCalls))
	if err != nil {
		return User{}, mapErr(err)
	}
	return out, nil
}

func (p *pgQueries) SetAcceptingCalls(ctx context.Context, id int64, accepting bool) error {
	const q = `UPDATE users SET accepting_calls = $2 WHERE id = $1`
	return expectOne(p.q.ExecContext(ctx, q, id, accepting))
}

func (p *pgQueries) CountAvailableAgents(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM users WHERE role = 'agent' AND accepting_calls`
	var n int
	if err := p.q.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}
