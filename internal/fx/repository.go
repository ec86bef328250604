package fx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists realization rows. There is no update or delete:
// corrections are new compensating rows.
type Repository interface {
	Insert(ctx context.Context, r Realization) (Realization, error)
	ListByInvoice(ctx context.Context, invoiceID int64) ([]Realization, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, rec Realization) (Realization, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fx_realizations
(invoice_id, base_currency, realized_currency, original_amount, realized_amount, gain_loss, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		rec.InvoiceID, rec.BaseCurrency, rec.RealizedCurrency,
		rec.OriginalAmount, rec.RealizedAmount, rec.GainLoss, rec.CreatedAt)
	if err := row.Scan(&rec.ID); err != nil {
		return Realization{}, err
	}
	return rec, nil
}

func (r *repository) ListByInvoice(ctx context.Context, invoiceID int64) ([]Realization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, base_currency, realized_currency,
original_amount, realized_amount, gain_loss, created_at
FROM fx_realizations WHERE invoice_id=$1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Realization
	for rows.Next() {
		var rec Realization
		if err := rows.Scan(&rec.ID, &rec.InvoiceID, &rec.BaseCurrency, &rec.RealizedCurrency,
			&rec.OriginalAmount, &rec.RealizedAmount, &rec.GainLoss, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
