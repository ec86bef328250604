package ledger

import (
	"context"
	"strings"
	"time"
)

// Converter resolves currency conversion for balance reporting.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Service is the posting engine and balance reporter.
type Service struct {
	repo   Repository
	conv   Converter
	noRate func(error) bool
	now    func() time.Time
}

// NewService constructs a Service. isNoRate classifies errors from conv
// that mean "no rate exists for this pair".
func NewService(repo Repository, conv Converter, isNoRate func(error) bool) *Service {
	if isNoRate == nil {
		isNoRate = func(error) bool { return false }
	}
	return &Service{repo: repo, conv: conv, noRate: isNoRate, now: time.Now}
}

// CreateAccount registers a ledger account.
func (s *Service) CreateAccount(ctx context.Context, name string, typ AccountType, currency string) (Account, error) {
	if name == "" {
		return Account{}, ErrAccountNameRequired
	}
	if !typ.Valid() {
		return Account{}, ErrInvalidAccountType
	}
	return s.repo.CreateAccount(ctx, Account{Name: name, Type: typ, Currency: strings.ToUpper(currency)})
}

// EnsureAccount returns the account with the given name, creating it when
// missing. Used for designated accounts such as FX Gain/Loss.
func (s *Service) EnsureAccount(ctx context.Context, name string, typ AccountType, currency string) (Account, error) {
	existing, err := s.repo.FindAccountByName(ctx, name)
	if err != nil {
		return Account{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	return s.CreateAccount(ctx, name, typ, currency)
}

// PostJournal validates the balance invariant and commits the entry plus
// all its lines as one atomic unit. A failed check persists nothing.
func (s *Service) PostJournal(ctx context.Context, in PostingInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	if in.Date.IsZero() {
		in.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	var journalID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertJournalEntry(ctx, in)
		if err != nil {
			return err
		}
		if err := tx.InsertLedgerLines(ctx, id, in.Lines); err != nil {
			return err
		}
		journalID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return journalID, nil
}

// AccountBalance computes balance = sum(debit) - sum(credit) for the
// account, converted to targetCurrency when requested. A missing rate is
// reported through RateMissing instead of silently returning the native
// amount as if converted.
func (s *Service) AccountBalance(ctx context.Context, accountID int64, targetCurrency string) (BalanceRow, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return BalanceRow{}, err
	}
	if acc == nil {
		return BalanceRow{}, ErrAccountNotFound
	}
	debit, credit, err := s.repo.AccountTotals(ctx, accountID)
	if err != nil {
		return BalanceRow{}, err
	}
	row := BalanceRow{
		AccountID:   acc.ID,
		AccountName: acc.Name,
		Currency:    acc.Currency,
		Balance:     debit - credit,
	}
	if targetCurrency == "" {
		return row, nil
	}
	return s.convertRow(ctx, row, strings.ToUpper(targetCurrency))
}

// TrialBalance returns one row per account. Per-journal balance is the
// only write-time invariant; overall zero-sum is a property of the data.
func (s *Service) TrialBalance(ctx context.Context, targetCurrency string) ([]BalanceRow, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	target := strings.ToUpper(targetCurrency)
	rows := make([]BalanceRow, 0, len(accounts))
	for _, acc := range accounts {
		debit, credit, err := s.repo.AccountTotals(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		row := BalanceRow{
			AccountID:   acc.ID,
			AccountName: acc.Name,
			Currency:    acc.Currency,
			Balance:     debit - credit,
		}
		if target != "" {
			row, err = s.convertRow(ctx, row, target)
			if err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) convertRow(ctx context.Context, row BalanceRow, target string) (BalanceRow, error) {
	row.TargetCurrency = target
	converted, err := s.conv.Convert(ctx, row.Balance, row.Currency, target)
	if err != nil {
		if s.noRate(err) {
			row.RateMissing = true
			return row, nil
		}
		return BalanceRow{}, err
	}
	row.Converted = &converted
	return row, nil
}
