package fx

import (
	"errors"
	"time"
)

// GainLossAccountName is the ledger account that absorbs realization
// differences. The posting is a single-account placeholder: both lines
// target this account so the journal stays balanced.
const GainLossAccountName = "FX Gain/Loss"

// Realization records the settlement of an invoice in a currency that may
// differ from the one it was booked in. Rows are immutable once written.
type Realization struct {
	ID               int64
	InvoiceID        int64
	BaseCurrency     string
	RealizedCurrency string
	OriginalAmount   float64
	RealizedAmount   float64
	GainLoss         float64
	CreatedAt        time.Time
}

// PostingOutcome reports whether the gain/loss journal was booked after
// the realization row committed, so callers can tell full success from
// success with an unbooked posting.
type PostingOutcome struct {
	Err error
}

// Ok reports whether the gain/loss posting succeeded.
func (o PostingOutcome) Ok() bool { return o.Err == nil }

// RealizeResult pairs the committed realization row with the outcome of
// its offsetting journal posting.
type RealizeResult struct {
	Realization
	Posting PostingOutcome
}

var (
	// ErrMissingPaymentCurrency indicates an empty settlement currency.
	ErrMissingPaymentCurrency = errors.New("fx: payment currency required")
	// ErrInvalidPaymentAmount indicates a non-positive settlement amount.
	ErrInvalidPaymentAmount = errors.New("fx: payment amount must be positive")
)
