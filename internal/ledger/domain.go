package ledger

import (
	"errors"
	"time"
)

// AccountType enumerates the five account classes.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// Valid reports whether t is one of the known account classes.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountRevenue, AccountExpense:
		return true
	}
	return false
}

// Account is a ledger account. Its balance is always derived from the
// lines posted against it, never stored.
type Account struct {
	ID       int64
	Name     string
	Type     AccountType
	Currency string
}

// JournalEntry captures posting metadata and owns its lines.
type JournalEntry struct {
	ID        int64
	Date      time.Time
	Narration string
	Lines     []LedgerLine
}

// LedgerLine stores a debit or credit amount for an account.
type LedgerLine struct {
	ID        int64
	JournalID int64
	AccountID int64
	Debit     float64
	Credit    float64
}

// BalanceRow is one line of a balance or trial-balance report. Converted
// is nil when no target currency was requested; RateMissing is set when a
// target was requested but no rate exists for the account's currency, in
// which case only the native balance is reported.
type BalanceRow struct {
	AccountID      int64
	AccountName    string
	Currency       string
	Balance        float64
	TargetCurrency string
	Converted      *float64
	RateMissing    bool
}

var (
	// ErrUnbalancedJournal indicates debits and credits do not match to
	// two decimal places.
	ErrUnbalancedJournal = errors.New("ledger: journal not balanced, debits must equal credits")
	// ErrTooFewLines indicates a journal with fewer than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidAccountType indicates a type outside the five classes.
	ErrInvalidAccountType = errors.New("ledger: unknown account type")
	// ErrAccountNameRequired indicates an empty account name.
	ErrAccountNameRequired = errors.New("ledger: account name required")
)
