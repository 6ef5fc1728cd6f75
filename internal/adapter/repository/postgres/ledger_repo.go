package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/welth/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// AccountTotals returns every account's stored balance next to the balance
// implied by its initial balance and transactions.
func (r *LedgerRepository) AccountTotals(ctx context.Context) ([]usecase.AccountTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.owner_id, a.balance,
			a.initial_balance + COALESCE(SUM(CASE WHEN t.type = 'INCOME' THEN t.amount ELSE -t.amount END), 0)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		GROUP BY a.id
		ORDER BY a.id`)
	if err != nil {
		return nil, storeErr("account totals", err, nil)
	}
	defer rows.Close()

	var totals []usecase.AccountTotal
	for rows.Next() {
		var (
			total    usecase.AccountTotal
			balance  pgtype.Numeric
			expected pgtype.Numeric
		)
		if err := rows.Scan(&total.AccountID, &total.OwnerID, &balance, &expected); err != nil {
			return nil, storeErr("account totals", err, nil)
		}
		total.Balance = numericToMoney(balance)
		total.Expected = numericToMoney(expected)
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("account totals", err, nil)
	}

	return totals, nil
}
