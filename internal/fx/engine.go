package fx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/ledger"
)

// InvoiceReader loads the invoice being settled, lines included.
type InvoiceReader interface {
	Get(ctx context.Context, id int64) (invoice.Invoice, error)
}

// Converter translates an amount between currencies using stored rates.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Poster books the realization difference into the general ledger.
type Poster interface {
	EnsureAccount(ctx context.Context, name string, typ ledger.AccountType, currency string) (ledger.Account, error)
	PostJournal(ctx context.Context, in ledger.PostingInput) (int64, error)
}

// Engine realizes settlement gain or loss against booked invoices.
type Engine struct {
	repo     Repository
	invoices InvoiceReader
	conv     Converter
	books    Poster
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine wires the realization engine.
func NewEngine(repo Repository, invoices InvoiceReader, conv Converter, books Poster, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, invoices: invoices, conv: conv, books: books, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Realize sums the invoice lines, converts the total into the settlement
// currency and records the difference against the payment. One realization
// row is written per call; the offsetting journal entry is a placeholder
// that debits and credits the same gain/loss account. The row stands even
// when the posting fails; the Posting outcome carries the failure.
func (e *Engine) Realize(ctx context.Context, invoiceID int64, paymentAmount float64, paymentCurrency string) (RealizeResult, error) {
	paymentCurrency = strings.ToUpper(strings.TrimSpace(paymentCurrency))
	if paymentCurrency == "" {
		return RealizeResult{}, ErrMissingPaymentCurrency
	}
	if paymentAmount <= 0 {
		return RealizeResult{}, ErrInvalidPaymentAmount
	}

	inv, err := e.invoices.Get(ctx, invoiceID)
	if err != nil {
		return RealizeResult{}, err
	}
	total := inv.TotalAmount()

	converted, err := e.conv.Convert(ctx, total, inv.Currency, paymentCurrency)
	if err != nil {
		return RealizeResult{}, fmt.Errorf("fx: converting %s to %s: %w", inv.Currency, paymentCurrency, err)
	}
	gainLoss := paymentAmount - converted

	rec, err := e.repo.Insert(ctx, Realization{
		InvoiceID:        inv.ID,
		BaseCurrency:     inv.Currency,
		RealizedCurrency: paymentCurrency,
		OriginalAmount:   total,
		RealizedAmount:   paymentAmount,
		GainLoss:         gainLoss,
		CreatedAt:        e.now().UTC(),
	})
	if err != nil {
		return RealizeResult{}, err
	}

	res := RealizeResult{Realization: rec}
	if err := e.postGainLoss(ctx, inv, paymentCurrency, gainLoss); err != nil {
		res.Posting = PostingOutcome{Err: err}
		e.logger.Warn("fx gain/loss posting failed",
			slog.Int64("invoice_id", inv.ID),
			slog.Float64("gain_loss", gainLoss),
			slog.String("error", err.Error()))
	}
	return res, nil
}

func (e *Engine) postGainLoss(ctx context.Context, inv invoice.Invoice, currency string, gainLoss float64) error {
	acct, err := e.books.EnsureAccount(ctx, GainLossAccountName, ledger.AccountExpense, currency)
	if err != nil {
		return err
	}
	amount := math.Abs(gainLoss)
	_, err = e.books.PostJournal(ctx, ledger.PostingInput{
		Date:      e.now().UTC(),
		Narration: fmt.Sprintf("FX realization for invoice %s", inv.InvoiceNumber),
		Lines: []ledger.PostingLineInput{
			{AccountID: acct.ID, Debit: amount, Credit: 0},
			{AccountID: acct.ID, Debit: 0, Credit: amount},
		},
	})
	return err
}

// History lists realizations recorded for one invoice, oldest first.
func (e *Engine) History(ctx context.Context, invoiceID int64) ([]Realization, error) {
	return e.repo.ListByInvoice(ctx, invoiceID)
}
