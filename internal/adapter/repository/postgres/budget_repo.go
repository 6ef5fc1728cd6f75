package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/welth/internal/domain"
)

const budgetColumns = `id, owner_id, amount, last_alert_sent, created_at, updated_at`

// BudgetRepository implements usecase.BudgetRepository.
type BudgetRepository struct {
	db DBTX
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: pool}
}

// Upsert stores the owner's budget. An existing row keeps its ID and last_alert_sent.
func (r *BudgetRepository) Upsert(ctx context.Context, budget *domain.Budget) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO budgets (id, owner_id, amount, last_alert_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`,
		budget.ID,
		budget.OwnerID,
		moneyToNumeric(budget.Amount),
		optionalTimestamptz(budget.LastAlertSent),
		timeToPgTimestamptz(budget.CreatedAt),
		timeToPgTimestamptz(budget.UpdatedAt),
	)

	return storeErr("upsert budget", err, nil)
}

// GetByOwner returns the owner's budget.
func (r *BudgetRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = $1`, ownerID))
	if err != nil {
		return nil, storeErr("get budget", err, domain.ErrBudgetNotFound)
	}

	return b, nil
}

// List returns budgets after afterID, in ID order.
func (r *BudgetRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.Budget, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, storeErr("list budgets", err, nil)
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, storeErr("list budgets", err, nil)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list budgets", err, nil)
	}

	return budgets, nil
}

// MarkAlertSent records when the last alert went out.
func (r *BudgetRepository) MarkAlertSent(ctx context.Context, id string, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE budgets SET last_alert_sent = $2, updated_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(sentAt),
	)
	if err != nil {
		return storeErr("mark alert sent", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}

	return nil
}

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var (
		b         domain.Budget
		amount    pgtype.Numeric
		lastAlert pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(&b.ID, &b.OwnerID, &amount, &lastAlert, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	b.Amount = numericToMoney(amount)
	b.LastAlertSent = timestamptzPtr(lastAlert)
	b.CreatedAt = createdAt.Time.UTC()
	b.UpdatedAt = updatedAt.Time.UTC()

	return &b, nil
}
