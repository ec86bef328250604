package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates invoice data for period reports.
type Repository interface {
	SummarizeGSTR1(ctx context.Context, start, end time.Time) (GSTR1Summary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) SummarizeGSTR1(ctx context.Context, start, end time.Time) (GSTR1Summary, error) {
	var out GSTR1Summary
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(l.amount), 0),
COALESCE(SUM(l.igst), 0),
COALESCE(SUM(l.cgst), 0),
COALESCE(SUM(l.sgst), 0),
COUNT(DISTINCT i.id)
FROM invoices i
LEFT JOIN invoice_lines l ON l.invoice_id = i.id
WHERE i.date >= $1 AND i.date <= $2`, start, end).
		Scan(&out.TotalTaxable, &out.TotalIGST, &out.TotalCGST, &out.TotalSGST, &out.InvoiceCount)
	if err != nil {
		return GSTR1Summary{}, err
	}
	return out, nil
}
