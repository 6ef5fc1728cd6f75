package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

// MaxCatchUpOccurrences caps how many overdue occurrences one template
// materializes in a single run.
const MaxCatchUpOccurrences = 366

// RecurringJob materializes due occurrences of recurring transactions.
type RecurringJob struct {
	engine          *TransactionUseCase
	txManager       TransactionManager
	transactionRepo TransactionRepository
	idGen           IDGenerator
	retrier         Retrier
	opts            JobOptions
	logger          zerolog.Logger
}

// NewRecurringJob creates a new RecurringJob.
func NewRecurringJob(
	engine *TransactionUseCase,
	txManager TransactionManager,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	retrier Retrier,
	opts JobOptions,
	logger zerolog.Logger,
) *RecurringJob {
	return &RecurringJob{
		engine:          engine,
		txManager:       txManager,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		retrier:         retrier,
		opts:            opts.withDefaults(),
		logger:          logger.With().Str("job", JobRecurringTransactions).Logger(),
	}
}

// Name returns the job name.
func (j *RecurringJob) Name() string { return JobRecurringTransactions }

// Run processes every template due at now. Templates are independent: a
// failing one is reported and left due for the next run.
func (j *RecurringJob) Run(ctx context.Context, now time.Time) (*JobReport, error) {
	report := NewJobReport(JobRecurringTransactions, now)

	err := forEachPage(ctx, j.opts, report,
		func(ctx context.Context, afterID string, limit int) ([]*domain.Transaction, error) {
			return j.transactionRepo.ListDueRecurring(ctx, now, afterID, limit)
		},
		func(t *domain.Transaction) string { return t.ID },
		func(ctx context.Context, t *domain.Transaction) EntityResult {
			return j.process(ctx, t.ID, now)
		},
	)
	report.Finish()

	j.logger.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("recurring transactions run finished")

	return report, err
}

// process materializes every overdue occurrence of one template, one atomic
// step at a time. Each step is retried on transient store errors.
func (j *RecurringJob) process(ctx context.Context, id string, now time.Time) EntityResult {
	res := EntityResult{EntityID: id, Status: EntitySkipped}
	created := 0

	for created < MaxCatchUpOccurrences {
		var step stepOutcome
		err := j.retrier.Retry(ctx, func() error {
			res.Attempts++
			var err error
			step, err = j.materialize(ctx, id, now)
			return err
		})
		if err != nil {
			res.Status = EntityFailed
			res.Err = err
			j.logger.Error().Err(err).
				Str("transaction_id", id).
				Int("attempts", res.Attempts).
				Int("created", created).
				Msg("failed to process recurring transaction")
			return res
		}

		if step.reason != "" {
			if created == 0 {
				res.Reason = step.reason
			}
			break
		}

		created++
		res.Status = EntityProcessed
		j.engine.invalidate(ctx, step.ownerID, step.accountID)
		if !step.stillDue {
			break
		}
	}

	if created > 1 {
		j.logger.Info().Str("transaction_id", id).Int("occurrences", created).Msg("caught up recurring transaction")
	}

	return res
}

type stepOutcome struct {
	ownerID   string
	accountID string
	stillDue  bool
	reason    string
}

// materialize creates the template's current occurrence and advances its
// schedule in one unit of work. The due check runs under the template's row
// lock, so a concurrent or repeated run cannot create the same occurrence twice.
func (j *RecurringJob) materialize(ctx context.Context, id string, now time.Time) (stepOutcome, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := j.txManager.Begin(txCtx)
	if err != nil {
		return stepOutcome{}, domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	// 1. Fetch and lock the template
	tmpl, err := j.transactionRepo.GetByIDForUpdate(txCtx, tx, id)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return stepOutcome{reason: "template deleted"}, nil
	}
	if err != nil {
		return stepOutcome{}, err
	}
	if !tmpl.IsDue(now) {
		return stepOutcome{reason: "not due"}, nil
	}

	// 2. Create the occurrence through the engine's write path
	occ := tmpl.Occurrence()
	occ.ID = j.idGen.Generate()
	occ.CreatedAt = time.Now().UTC()
	occ.UpdatedAt = occ.CreatedAt
	if err := j.engine.create(txCtx, tx, occ); err != nil {
		return stepOutcome{}, err
	}

	// 3. Advance the schedule
	next, err := domain.AdvanceSchedule(tmpl.Date, *tmpl.NextRecurringDate, tmpl.RecurringInterval)
	if err != nil {
		return stepOutcome{}, err
	}
	if err := j.transactionRepo.AdvanceSchedule(txCtx, tx, id, next, occ.CreatedAt); err != nil {
		return stepOutcome{}, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return stepOutcome{}, domain.StoreError("commit", err)
	}

	return stepOutcome{
		ownerID:   tmpl.OwnerID,
		accountID: tmpl.AccountID,
		stillDue:  !next.After(now),
	}, nil
}
