package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biznooks/biznooks/internal/platform/db"
)

// Repository encapsulates DB operations for invoices and their audit
// trail.
type Repository interface {
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	GetInvoiceWithLines(ctx context.Context, id int64) (*Invoice, error)
	// ListAuditEvents returns up to limit events newest-first.
	ListAuditEvents(ctx context.Context, invoiceID int64, limit int) ([]AuditEvent, error)
	InsertAuditEvent(ctx context.Context, ev AuditEvent) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within one unit of work.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []Line) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	GetInvoiceByIRNForUpdate(ctx context.Context, irn string) (*Invoice, error)
	UpdateEInvoice(ctx context.Context, id int64, irn *string, status EInvoiceStatus) error
	SetLUT(ctx context.Context, id int64, reference string) error
	InsertAuditEvent(ctx context.Context, ev AuditEvent) error
	InsertSignedDocument(ctx context.Context, doc SignedDocument) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, invoice_number, date, customer_name, customer_gstin, place_of_supply,
is_export, lut_applicable, lut_reference, iec, currency, einvoice_irn, einvoice_status`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Date, &inv.CustomerName, &inv.CustomerGSTIN,
		&inv.PlaceOfSupply, &inv.IsExport, &inv.LUTApplicable, &inv.LUTReference, &inv.IEC,
		&inv.Currency, &inv.EInvoiceIRN, &inv.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
}

func (r *repository) GetInvoiceWithLines(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := r.GetInvoice(ctx, id)
	if err != nil || inv == nil {
		return inv, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_rate, amount, igst, cgst, sgst
FROM invoice_lines WHERE invoice_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description, &line.Quantity,
			&line.UnitRate, &line.Amount, &line.IGST, &line.CGST, &line.SGST); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *repository) ListAuditEvents(ctx context.Context, invoiceID int64, limit int) ([]AuditEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, event, details, timestamp
FROM einvoice_audit_events WHERE invoice_id=$1 ORDER BY timestamp DESC, id DESC LIMIT $2`, invoiceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.InvoiceID, &ev.Event, &ev.Details, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *repository) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	return insertAuditEvent(ctx, r.pool, ev)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices
(invoice_number, date, customer_name, customer_gstin, place_of_supply, is_export, lut_applicable, lut_reference, iec, currency, einvoice_irn, einvoice_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		inv.InvoiceNumber, inv.Date, inv.CustomerName, inv.CustomerGSTIN, inv.PlaceOfSupply,
		inv.IsExport, inv.LUTApplicable, inv.LUTReference, inv.IEC, inv.Currency, inv.EInvoiceIRN, inv.Status).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_invoices_number") {
			return 0, ErrDuplicateInvoiceNumber
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO invoice_lines (invoice_id, description, quantity, unit_rate, amount, igst, cgst, sgst)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, invoiceID, line.Description, line.Quantity, line.UnitRate,
			line.Amount, line.IGST, line.CGST, line.SGST); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) GetInvoiceByIRNForUpdate(ctx context.Context, irn string) (*Invoice, error) {
	return scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE einvoice_irn=$1 FOR UPDATE`, irn))
}

func (r *txRepository) UpdateEInvoice(ctx context.Context, id int64, irn *string, status EInvoiceStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE invoices SET einvoice_irn=$2, einvoice_status=$3 WHERE id=$1`, id, irn, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) SetLUT(ctx context.Context, id int64, reference string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE invoices SET lut_applicable=TRUE, lut_reference=$2 WHERE id=$1`, id, reference)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *txRepository) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	return insertAuditEvent(ctx, r.tx, ev)
}

func (r *txRepository) InsertSignedDocument(ctx context.Context, doc SignedDocument) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO signed_documents (invoice_id, filename, locator, uploaded_at)
VALUES ($1,$2,$3,$4) RETURNING id`, doc.InvoiceID, doc.Filename, doc.Locator, doc.UploadedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAuditEvent(ctx context.Context, q execer, ev AuditEvent) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `INSERT INTO einvoice_audit_events (invoice_id, event, details, timestamp)
VALUES ($1,$2,$3,$4)`, ev.InvoiceID, ev.Event, ev.Details, ts)
	return err
}
