package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

const transactionColumns = `id, owner_id, account_id, type, amount, date, description, category, receipt_url,
	is_recurring, COALESCE(recurring_interval, ''), next_recurring_date, last_processed, created_at, updated_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: pool}
}

// Create inserts a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO transactions (
			id, owner_id, account_id, type, amount, date, description, category, receipt_url,
			is_recurring, recurring_interval, next_recurring_date, last_processed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14, $15)`,
		t.ID,
		t.OwnerID,
		t.AccountID,
		string(t.Type),
		moneyToNumeric(t.Amount),
		timeToPgTimestamptz(t.Date),
		t.Description,
		t.Category,
		t.ReceiptURL,
		t.IsRecurring,
		string(t.RecurringInterval),
		optionalTimestamptz(t.NextRecurringDate),
		optionalTimestamptz(t.LastProcessed),
		timeToPgTimestamptz(t.CreatedAt),
		timeToPgTimestamptz(t.UpdatedAt),
	)

	return storeErr("create transaction", err, nil)
}

// Update overwrites the mutable fields of a transaction.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE transactions SET
			account_id = $2, type = $3, amount = $4, date = $5, description = $6, category = $7,
			receipt_url = $8, is_recurring = $9, recurring_interval = NULLIF($10, ''),
			next_recurring_date = $11, updated_at = $12
		WHERE id = $1`,
		t.ID,
		t.AccountID,
		string(t.Type),
		moneyToNumeric(t.Amount),
		timeToPgTimestamptz(t.Date),
		t.Description,
		t.Category,
		t.ReceiptURL,
		t.IsRecurring,
		string(t.RecurringInterval),
		optionalTimestamptz(t.NextRecurringDate),
		timeToPgTimestamptz(t.UpdatedAt),
	)
	if err != nil {
		return storeErr("update transaction", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// Delete removes a transaction.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := txQuerier(tx).Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete transaction", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, storeErr("get transaction", err, domain.ErrTransactionNotFound)
	}

	return t, nil
}

// GetByIDForUpdate retrieves a transaction and locks its row.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	row := txQuerier(tx).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)

	t, err := scanTransaction(row)
	if err != nil {
		return nil, storeErr("lock transaction", err, domain.ErrTransactionNotFound)
	}

	return t, nil
}

// List returns the owner's transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	where, args := filterClause(ownerID, filter)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list transactions", err, nil)
	}

	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, storeErr("list transactions", err, nil)
	}

	return txs, nil
}

// filterClause renders filter as a WHERE clause with positional arguments.
func filterClause(ownerID string, f domain.TransactionFilter) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{ownerID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AccountID != "" {
		add("account_id = $%d", f.AccountID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.IsRecurring != nil {
		add("is_recurring = $%d", *f.IsRecurring)
	}
	if f.From != nil {
		add("date >= $%d", timeToPgTimestamptz(*f.From))
	}
	if f.To != nil {
		add("date <= $%d", timeToPgTimestamptz(*f.To))
	}

	return strings.Join(conds, " AND "), args
}

// ListDueRecurring returns due recurring templates after afterID, in ID order.
func (r *TransactionRepository) ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE is_recurring AND next_recurring_date <= $1 AND id > $2
		ORDER BY id
		LIMIT $3`,
		timeToPgTimestamptz(now), afterID, limit,
	)
	if err != nil {
		return nil, storeErr("list due recurring", err, nil)
	}

	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, storeErr("list due recurring", err, nil)
	}

	return txs, nil
}

// AdvanceSchedule moves a template's next recurring date.
func (r *TransactionRepository) AdvanceSchedule(ctx context.Context, tx usecase.Transaction, id string, next, processedAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE transactions
		SET next_recurring_date = $2, last_processed = $3, updated_at = $3
		WHERE id = $1`,
		id, timeToPgTimestamptz(next), timeToPgTimestamptz(processedAt),
	)
	if err != nil {
		return storeErr("advance schedule", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// SumExpenses totals EXPENSE amounts on accountID dated in [from, to).
func (r *TransactionRepository) SumExpenses(ctx context.Context, accountID string, from, to time.Time) (domain.Money, error) {
	var total pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1 AND type = 'EXPENSE' AND date >= $2 AND date < $3`,
		accountID, timeToPgTimestamptz(from), timeToPgTimestamptz(to),
	).Scan(&total)
	if err != nil {
		return domain.Zero, storeErr("sum expenses", err, nil)
	}

	return numericToMoney(total), nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t         domain.Transaction
		typ       string
		interval  string
		amount    pgtype.Numeric
		date      pgtype.Timestamptz
		next      pgtype.Timestamptz
		processed pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.AccountID,
		&typ,
		&amount,
		&date,
		&t.Description,
		&t.Category,
		&t.ReceiptURL,
		&t.IsRecurring,
		&interval,
		&next,
		&processed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Type = domain.TransactionType(typ)
	t.RecurringInterval = domain.RecurringInterval(interval)
	t.Amount = numericToMoney(amount)
	t.Date = date.Time.UTC()
	t.NextRecurringDate = timestamptzPtr(next)
	t.LastProcessed = timestamptzPtr(processed)
	t.CreatedAt = createdAt.Time.UTC()
	t.UpdatedAt = updatedAt.Time.UTC()

	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}

	return txs, rows.Err()
}
