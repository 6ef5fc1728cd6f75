package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/welth/internal/domain"
)

// ReconciliationUseCase checks that every account balance equals its initial
// balance plus the signed sum of its transactions.
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// ReconciliationResult represents one account that failed the check
type ReconciliationResult struct {
	AccountID         string       `json:"accountId"`
	OwnerID           string       `json:"ownerId"`
	RecordedBalance   domain.Money `json:"recordedBalance"`
	CalculatedBalance domain.Money `json:"calculatedBalance"`
	Difference        domain.Money `json:"difference"`
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int                     `json:"totalAccounts"`
	ReconciledAccounts int                     `json:"reconciledAccounts"`
	Discrepancies      []*ReconciliationResult `json:"discrepancies"`
	CheckedAt          time.Time               `json:"checkedAt"`
}

// Consistent reports whether no discrepancies were found.
func (r *ReconciliationReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}

// GenerateReport checks every account.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context) (*ReconciliationReport, error) {
	totals, err := uc.ledgerRepo.AccountTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account totals: %w", err)
	}

	report := &ReconciliationReport{
		TotalAccounts: len(totals),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, t := range totals {
		if t.Balance.Equal(t.Expected) {
			report.ReconciledAccounts++
			continue
		}
		report.Discrepancies = append(report.Discrepancies, &ReconciliationResult{
			AccountID:         t.AccountID,
			OwnerID:           t.OwnerID,
			RecordedBalance:   t.Balance,
			CalculatedBalance: t.Expected,
			Difference:        t.Balance.Sub(t.Expected),
		})
	}

	return report, nil
}
