package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"callcenter-api/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres is the database/sql implementation of Store. It expects the pgx
// stdlib driver; SQL is Postgres dialect.
type Postgres struct {
	*pgQueries
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{pgQueries: &pgQueries{q: db}, db: db}
}

func (p *Postgres) WithTransaction(ctx context.Context, fn TxFunc) error {
	return utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &pgQueries{q: tx})
	})
}

type pgQueries struct {
	q querier
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr normalizes driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrReference, pgErr.ConstraintName)
		}
	}
	return err
}

// expectOne turns a zero-row UPDATE into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// args accumulates positional parameters and hands out $n placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// callConds renders f as SQL conditions on alias. Conditions are returned
// without a leading WHERE/AND so callers can place them in ON clauses.
func callConds(f CallFilter, alias string, a *args) string {
	var conds []string
	if !f.From.IsZero() {
		conds = append(conds, alias+".called_at >= "+a.add(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, alias+".called_at < "+a.add(f.To))
	}
	if f.UserID != 0 {
		conds = append(conds, alias+".user_id = "+a.add(f.UserID))
	}
	if f.CampaignID != 0 {
		conds = append(conds, alias+".campaign_id = "+a.add(f.CampaignID))
	}
	return strings.Join(conds, " AND ")
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
