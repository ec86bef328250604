package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/biznooks/biznooks/internal/rates"
)

type memoryLedgerRepo struct {
	accounts      map[int64]*Account
	journals      map[int64]*JournalEntry
	lines         []LedgerLine
	nextAccountID int64
	nextJournalID int64
	nextLineID    int64
	failLines     bool
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts: make(map[int64]*Account),
		journals: make(map[int64]*JournalEntry),
	}
}

func (r *memoryLedgerRepo) CreateAccount(ctx context.Context, acc Account) (Account, error) {
	r.nextAccountID++
	acc.ID = r.nextAccountID
	r.accounts[acc.ID] = &acc
	return acc, nil
}

func (r *memoryLedgerRepo) GetAccount(ctx context.Context, id int64) (*Account, error) {
	return r.accounts[id], nil
}

func (r *memoryLedgerRepo) FindAccountByName(ctx context.Context, name string) (*Account, error) {
	for _, acc := range r.accounts {
		if acc.Name == name {
			return acc, nil
		}
	}
	return nil, nil
}

func (r *memoryLedgerRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(r.accounts))
	for id := int64(1); id <= r.nextAccountID; id++ {
		if acc, ok := r.accounts[id]; ok {
			out = append(out, *acc)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) AccountTotals(ctx context.Context, accountID int64) (float64, float64, error) {
	var debit, credit float64
	for _, line := range r.lines {
		if line.AccountID == accountID {
			debit += line.Debit
			credit += line.Credit
		}
	}
	return debit, credit, nil
}

type memoryLedgerTx struct {
	repo    *memoryLedgerRepo
	entries map[int64]*JournalEntry
	lines   []LedgerLine
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryLedgerTx{repo: r, entries: make(map[int64]*JournalEntry)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, entry := range tx.entries {
		r.journals[id] = entry
	}
	r.lines = append(r.lines, tx.lines...)
	return nil
}

func (tx *memoryLedgerTx) InsertJournalEntry(ctx context.Context, in PostingInput) (int64, error) {
	tx.repo.nextJournalID++
	id := tx.repo.nextJournalID
	tx.entries[id] = &JournalEntry{ID: id, Date: in.Date, Narration: in.Narration}
	return id, nil
}

func (tx *memoryLedgerTx) InsertLedgerLines(ctx context.Context, journalID int64, lines []PostingLineInput) error {
	if tx.repo.failLines {
		return context.DeadlineExceeded
	}
	for _, line := range lines {
		tx.repo.nextLineID++
		tx.lines = append(tx.lines, LedgerLine{
			ID:        tx.repo.nextLineID,
			JournalID: journalID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	return nil
}

func newTestRatesService() *rates.Service {
	repo := newMemoryRatesRepo()
	return rates.NewService(repo)
}

type memoryRatesRepo struct {
	quotes []rates.ExchangeRate
	nextID int64
}

func newMemoryRatesRepo() *memoryRatesRepo {
	return &memoryRatesRepo{}
}

func (r *memoryRatesRepo) CreateCurrency(ctx context.Context, cur rates.Currency) (rates.Currency, error) {
	return cur, nil
}

func (r *memoryRatesRepo) CreateRate(ctx context.Context, base, target string, rate float64, capturedAt time.Time) (rates.ExchangeRate, error) {
	r.nextID++
	quote := rates.ExchangeRate{ID: r.nextID, Base: base, Target: target, Rate: rate, CapturedAt: capturedAt}
	r.quotes = append(r.quotes, quote)
	return quote, nil
}

func (r *memoryRatesRepo) LatestRate(ctx context.Context, base, target string) (*rates.ExchangeRate, error) {
	var latest *rates.ExchangeRate
	for i := range r.quotes {
		q := r.quotes[i]
		if q.Base != base || q.Target != target {
			continue
		}
		if latest == nil || q.CapturedAt.After(latest.CapturedAt) {
			latest = &r.quotes[i]
		}
	}
	return latest, nil
}

func (r *memoryRatesRepo) ListCurrencies(ctx context.Context) ([]rates.Currency, error) {
	return nil, nil
}

func newTestService(repo *memoryLedgerRepo, conv *rates.Service) *Service {
	return NewService(repo, conv, func(err error) bool {
		return err == rates.ErrNoRateAvailable
	})
}

func TestPostJournalBalanced(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newTestService(repo, newTestRatesService())

	cash, err := svc.CreateAccount(ctx, "Cash", AccountAsset, "USD")
	require.NoError(t, err)
	revenue, err := svc.CreateAccount(ctx, "Revenue", AccountRevenue, "USD")
	require.NoError(t, err)

	journalID, err := svc.PostJournal(ctx, PostingInput{
		Narration: "cash sale",
		Lines: []PostingLineInput{
			{AccountID: cash.ID, Debit: 100},
			{AccountID: revenue.ID, Credit: 100},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, journalID)
	require.Len(t, repo.lines, 2)

	tb, err := svc.TrialBalance(ctx, "")
	require.NoError(t, err)
	require.Len(t, tb, 2)
	require.Equal(t, 100.0, tb[0].Balance)
	require.Equal(t, -100.0, tb[1].Balance)
}

func TestPostJournalUnbalancedPersistsNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newTestService(repo, newTestRatesService())

	cash, err := svc.CreateAccount(ctx, "Cash", AccountAsset, "USD")
	require.NoError(t, err)
	revenue, err := svc.CreateAccount(ctx, "Revenue", AccountRevenue, "USD")
	require.NoError(t, err)

	_, err = svc.PostJournal(ctx, PostingInput{
		Lines: []PostingLineInput{
			{AccountID: cash.ID, Debit: 100},
			{AccountID: revenue.ID, Credit: 90},
		},
	})
	require.ErrorIs(t, err, ErrUnbalancedJournal)
	require.Empty(t, repo.lines)
	require.Empty(t, repo.journals)
}

func TestPostJournalBalancedWithinRounding(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newTestService(repo, newTestRatesService())

	a, err := svc.CreateAccount(ctx, "A", AccountAsset, "USD")
	require.NoError(t, err)
	b, err := svc.CreateAccount(ctx, "B", AccountRevenue, "USD")
	require.NoError(t, err)

	// 0.1+0.2 != 0.3 in binary floats; the 2-decimal rounding absorbs it.
	_, err = svc.PostJournal(ctx, PostingInput{
		Lines: []PostingLineInput{
			{AccountID: a.ID, Debit: 0.1},
			{AccountID: a.ID, Debit: 0.2},
			{AccountID: b.ID, Credit: 0.3},
		},
	})
	require.NoError(t, err)
}

func TestPostJournalTooFewLines(t *testing.T) {
	svc := newTestService(newMemoryLedgerRepo(), newTestRatesService())
	_, err := svc.PostJournal(context.Background(), PostingInput{
		Lines: []PostingLineInput{{AccountID: 1, Debit: 0}},
	})
	require.ErrorIs(t, err, ErrTooFewLines)
}

func TestPostJournalRollsBackOnLineFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newTestService(repo, newTestRatesService())

	cash, err := svc.CreateAccount(ctx, "Cash", AccountAsset, "USD")
	require.NoError(t, err)
	revenue, err := svc.CreateAccount(ctx, "Revenue", AccountRevenue, "USD")
	require.NoError(t, err)

	repo.failLines = true
	_, err = svc.PostJournal(ctx, PostingInput{
		Lines: []PostingLineInput{
			{AccountID: cash.ID, Debit: 50},
			{AccountID: revenue.ID, Credit: 50},
		},
	})
	require.Error(t, err)
	require.Empty(t, repo.journals)
	require.Empty(t, repo.lines)
}

func TestAccountBalanceConverted(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	conv := newTestRatesService()
	svc := newTestService(repo, conv)

	cash, err := svc.CreateAccount(ctx, "Cash", AccountAsset, "USD")
	require.NoError(t, err)
	revenue, err := svc.CreateAccount(ctx, "Revenue", AccountRevenue, "USD")
	require.NoError(t, err)

	_, err = conv.AddRate(ctx, "USD", "INR", 83.5)
	require.NoError(t, err)

	_, err = svc.PostJournal(ctx, PostingInput{
		Lines: []PostingLineInput{
			{AccountID: cash.ID, Debit: 1000},
			{AccountID: revenue.ID, Credit: 1000},
		},
	})
	require.NoError(t, err)

	row, err := svc.AccountBalance(ctx, cash.ID, "inr")
	require.NoError(t, err)
	require.Equal(t, 1000.0, row.Balance)
	require.Equal(t, "INR", row.TargetCurrency)
	require.False(t, row.RateMissing)
	require.NotNil(t, row.Converted)
	require.InDelta(t, 83500, *row.Converted, 1e-9)
}

func TestAccountBalanceMissingRateIsSignalled(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newTestService(repo, newTestRatesService())

	cash, err := svc.CreateAccount(ctx, "Cash", AccountAsset, "USD")
	require.NoError(t, err)

	row, err := svc.AccountBalance(ctx, cash.ID, "EUR")
	require.NoError(t, err)
	require.True(t, row.RateMissing)
	require.Nil(t, row.Converted)
	require.Equal(t, "EUR", row.TargetCurrency)
}

func TestAccountBalanceUnknownAccount(t *testing.T) {
	svc := newTestService(newMemoryLedgerRepo(), newTestRatesService())
	_, err := svc.AccountBalance(context.Background(), 99, "")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryLedgerRepo(), newTestRatesService())

	first, err := svc.EnsureAccount(ctx, "FX Gain/Loss", AccountExpense, "INR")
	require.NoError(t, err)
	second, err := svc.EnsureAccount(ctx, "FX Gain/Loss", AccountExpense, "INR")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}
