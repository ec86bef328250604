package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for accounts and journals.
type Repository interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
	FindAccountByName(ctx context.Context, name string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	// AccountTotals returns the summed debit and credit posted against
	// the account.
	AccountTotals(ctx context.Context, accountID int64) (debit, credit float64, err error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	InsertJournalEntry(ctx context.Context, in PostingInput) (int64, error)
	InsertLedgerLines(ctx context.Context, journalID int64, lines []PostingLineInput) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) CreateAccount(ctx context.Context, acc Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (name, type, currency) VALUES ($1, $2, $3) RETURNING id`,
		acc.Name, acc.Type, acc.Currency)
	if err := row.Scan(&acc.ID); err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (r *repository) GetAccount(ctx context.Context, id int64) (*Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, currency FROM accounts WHERE id=$1`, id).
		Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (r *repository) FindAccountByName(ctx context.Context, name string) (*Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, currency FROM accounts WHERE name=$1 LIMIT 1`, name).
		Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type, currency FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Currency); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (r *repository) AccountTotals(ctx context.Context, accountID int64) (float64, float64, error) {
	var debit, credit float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM ledger_lines WHERE account_id=$1`, accountID).Scan(&debit, &credit)
	if err != nil {
		return 0, 0, err
	}
	return debit, credit, nil
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

func (r *txRepository) InsertJournalEntry(ctx context.Context, in PostingInput) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, narration) VALUES ($1, $2) RETURNING id`,
		in.Date, in.Narration).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertLedgerLines(ctx context.Context, journalID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO ledger_lines (journal_id, account_id, debit, credit)
VALUES ($1, $2, $3, $4)`, journalID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit)); err != nil {
			return err
		}
	}
	return nil
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
