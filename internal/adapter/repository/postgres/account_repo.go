package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

const (
	accountColumns = `a.id, a.owner_id, a.name, a.type, a.balance, a.initial_balance, a.is_default,
	(SELECT count(*) FROM transactions t WHERE t.account_id = a.id), a.created_at, a.updated_at`

	// Locking reads skip the transaction count.
	accountLockColumns = `a.id, a.owner_id, a.name, a.type, a.balance, a.initial_balance, a.is_default,
	0, a.created_at, a.updated_at`
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: pool}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO accounts (id, owner_id, name, type, balance, initial_balance, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID,
		account.OwnerID,
		account.Name,
		string(account.Type),
		moneyToNumeric(account.Balance),
		moneyToNumeric(account.InitialBalance),
		account.IsDefault,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return storeErr("create account", err, nil)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		return nil, storeErr("get account", err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// GetByIDsForUpdate locks the given accounts in ID order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := txQuerier(tx).Query(ctx, `
		SELECT `+accountLockColumns+`
		FROM accounts a
		WHERE a.id = ANY($1)
		ORDER BY a.id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, storeErr("lock accounts", err, nil)
	}

	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, storeErr("lock accounts", err, nil)
	}

	return accounts, nil
}

// ListByOwner lists an owner's accounts, oldest first.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts a
		WHERE a.owner_id = $1
		ORDER BY a.created_at, a.id`, ownerID)
	if err != nil {
		return nil, storeErr("list accounts", err, nil)
	}

	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, storeErr("list accounts", err, nil)
	}

	return accounts, nil
}

// GetDefault returns the owner's default account.
func (r *AccountRepository) GetDefault(ctx context.Context, ownerID string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.owner_id = $1 AND a.is_default`, ownerID)

	account, err := scanAccount(row)
	if err != nil {
		return nil, storeErr("get default account", err, domain.ErrAccountNotFound)
	}

	return account, nil
}

// ApplyDelta adds delta to the balance in a single statement and returns the new balance.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, delta domain.Money, updatedAt time.Time) (domain.Money, error) {
	var balance pgtype.Numeric
	err := txQuerier(tx).QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1
		RETURNING balance`,
		id, moneyToNumeric(delta), timeToPgTimestamptz(updatedAt),
	).Scan(&balance)
	if err != nil {
		return domain.Zero, storeErr("apply balance delta", err, domain.ErrAccountNotFound)
	}

	return numericToMoney(balance), nil
}

// SetDefault makes id the owner's only default account. The previous default
// is cleared first so the partial unique index never sees two defaults.
func (r *AccountRepository) SetDefault(ctx context.Context, tx usecase.Transaction, ownerID, id string, updatedAt time.Time) error {
	q := txQuerier(tx)

	if _, err := q.Exec(ctx, `
		UPDATE accounts SET is_default = FALSE, updated_at = $3
		WHERE owner_id = $1 AND is_default AND id <> $2`,
		ownerID, id, timeToPgTimestamptz(updatedAt),
	); err != nil {
		return storeErr("clear default account", err, nil)
	}

	tag, err := q.Exec(ctx, `
		UPDATE accounts SET is_default = TRUE, updated_at = $3
		WHERE owner_id = $1 AND id = $2`,
		ownerID, id, timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return storeErr("set default account", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a              domain.Account
		typ            string
		balance        pgtype.Numeric
		initialBalance pgtype.Numeric
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Name,
		&typ,
		&balance,
		&initialBalance,
		&a.IsDefault,
		&a.TransactionCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AccountType(typ)
	a.Balance = numericToMoney(balance)
	a.InitialBalance = numericToMoney(initialBalance)
	a.CreatedAt = createdAt.Time.UTC()
	a.UpdatedAt = updatedAt.Time.UTC()

	return &a, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
