package rates

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biznooks/biznooks/internal/platform/db"
)

// Repository encapsulates persistence for currencies and exchange rates.
type Repository interface {
	CreateCurrency(ctx context.Context, cur Currency) (Currency, error)
	CreateRate(ctx context.Context, base, target string, rate float64, capturedAt time.Time) (ExchangeRate, error)
	// LatestRate returns the most recent rate for the exact pair, or nil
	// when the pair has never been quoted.
	LatestRate(ctx context.Context, base, target string) (*ExchangeRate, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) CreateCurrency(ctx context.Context, cur Currency) (Currency, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO currencies (code, name) VALUES ($1, $2)`, cur.Code, cur.Name)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Currency{}, ErrCurrencyExists
		}
		return Currency{}, err
	}
	return cur, nil
}

func (r *repository) CreateRate(ctx context.Context, base, target string, rate float64, capturedAt time.Time) (ExchangeRate, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO exchange_rates (base, target, rate, captured_at)
VALUES ($1, $2, $3, $4) RETURNING id`, base, target, rate, capturedAt)
	out := ExchangeRate{Base: base, Target: target, Rate: rate, CapturedAt: capturedAt}
	if err := row.Scan(&out.ID); err != nil {
		return ExchangeRate{}, err
	}
	return out, nil
}

func (r *repository) LatestRate(ctx context.Context, base, target string) (*ExchangeRate, error) {
	var rate ExchangeRate
	err := r.pool.QueryRow(ctx, `SELECT id, base, target, rate, captured_at
FROM exchange_rates WHERE base=$1 AND target=$2 ORDER BY captured_at DESC LIMIT 1`, base, target).
		Scan(&rate.ID, &rate.Base, &rate.Target, &rate.Rate, &rate.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name FROM currencies ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var cur Currency
		if err := rows.Scan(&cur.Code, &cur.Name); err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, rows.Err()
}
