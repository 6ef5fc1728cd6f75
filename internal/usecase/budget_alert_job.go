package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

// BudgetAlertJob notifies owners whose month-to-date spending reaches the
// alert threshold, at most once per calendar month per budget.
type BudgetAlertJob struct {
	budgetRepo      BudgetRepository
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	userRepo        UserRepository
	notifier        Notifier
	location        *time.Location
	opts            JobOptions
	logger          zerolog.Logger
}

// NewBudgetAlertJob creates a new BudgetAlertJob. Calendar months are taken in loc.
func NewBudgetAlertJob(
	budgetRepo BudgetRepository,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	userRepo UserRepository,
	notifier Notifier,
	loc *time.Location,
	opts JobOptions,
	logger zerolog.Logger,
) *BudgetAlertJob {
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetAlertJob{
		budgetRepo:      budgetRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		location:        loc,
		opts:            opts.withDefaults(),
		logger:          logger.With().Str("job", JobBudgetAlerts).Logger(),
	}
}

// Name returns the job name.
func (j *BudgetAlertJob) Name() string { return JobBudgetAlerts }

// Run evaluates every budget at now.
func (j *BudgetAlertJob) Run(ctx context.Context, now time.Time) (*JobReport, error) {
	report := NewJobReport(JobBudgetAlerts, now)

	err := forEachPage(ctx, j.opts, report,
		j.budgetRepo.List,
		func(b *domain.Budget) string { return b.ID },
		func(ctx context.Context, b *domain.Budget) EntityResult {
			return j.process(ctx, b, now)
		},
	)
	report.Finish()

	j.logger.Info().
		Int("alerted", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("budget alert run finished")

	return report, err
}

// process evaluates one budget. lastAlertSent only moves after the notifier
// accepted the alert, so a failed delivery is retried on the next run.
func (j *BudgetAlertJob) process(ctx context.Context, budget *domain.Budget, now time.Time) EntityResult {
	res := EntityResult{EntityID: budget.ID, Attempts: 1}
	fail := func(err error, msg string) EntityResult {
		res.Status = EntityFailed
		res.Err = err
		j.logger.Error().Err(err).Str("budget_id", budget.ID).Str("owner_id", budget.OwnerID).Msg(msg)
		return res
	}
	skip := func(reason string) EntityResult {
		res.Status = EntitySkipped
		res.Reason = reason
		return res
	}

	// 1. Resolve the default account
	account, err := j.accountRepo.GetDefault(ctx, budget.OwnerID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return skip("no default account")
	}
	if err != nil {
		return fail(err, "failed to resolve default account")
	}

	// 2. Month-to-date expenses
	expenses, err := MonthToDateExpenses(ctx, j.transactionRepo, account.ID, now, j.location)
	if err != nil {
		return fail(err, "failed to sum expenses")
	}

	// 3. Threshold and once-per-month check
	if !budget.ShouldAlert(expenses, now, j.location) {
		if budget.AlertedIn(now, j.location) {
			return skip("already alerted this month")
		}
		return skip("below threshold")
	}

	// 4. Notify
	user, err := j.userRepo.GetByID(ctx, budget.OwnerID)
	if err != nil {
		return fail(err, "failed to load budget owner")
	}

	status := domain.NewBudgetStatus(budget, expenses)
	if err := j.notifier.Notify(ctx, domain.NewBudgetAlert(user, account, status)); err != nil {
		return fail(domain.NotificationError(user.Email, err), "failed to send budget alert")
	}

	// 5. Checkpoint
	if err := j.budgetRepo.MarkAlertSent(ctx, budget.ID, now); err != nil {
		return fail(err, "budget alert sent but checkpoint not saved")
	}

	j.logger.Info().
		Str("budget_id", budget.ID).
		Str("percentage_used", status.PercentageUsed.StringFixed(1)).
		Msg("budget alert sent")

	res.Status = EntityProcessed
	return res
}
