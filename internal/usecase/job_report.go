package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job names
const (
	JobRecurringTransactions = "recurring-transactions"
	JobBudgetAlerts          = "budget-alerts"
	JobMonthlyReports        = "monthly-reports"
)

// EntityStatus is the outcome of one entity in a job run.
type EntityStatus string

const (
	EntityProcessed EntityStatus = "processed"
	EntitySkipped   EntityStatus = "skipped"
	EntityFailed    EntityStatus = "failed"
)

// EntityResult is the outcome of processing one budget, template or user.
type EntityResult struct {
	EntityID string       `json:"entityId"`
	Status   EntityStatus `json:"status"`
	Attempts int          `json:"attempts,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Err      error        `json:"-"`
}

// Error returns the failure message, if any.
func (r EntityResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// JobReport collects per-entity results of a single job run.
type JobReport struct {
	Job        string         `json:"job"`
	RunAt      time.Time      `json:"runAt"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Results    []EntityResult `json:"results"`

	mu sync.Mutex
}

// NewJobReport starts a report for job at now.
func NewJobReport(job string, now time.Time) *JobReport {
	return &JobReport{
		Job:       job,
		RunAt:     now,
		StartedAt: time.Now().UTC(),
		Results:   make([]EntityResult, 0),
	}
}

// Add records one entity result. Safe for concurrent use.
func (r *JobReport) Add(res EntityResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch res.Status {
	case EntityProcessed:
		r.Processed++
	case EntitySkipped:
		r.Skipped++
	case EntityFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

// Finish stamps the end time.
func (r *JobReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now().UTC()
}

// Duration is how long the run took.
func (r *JobReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures returns the failed results.
func (r *JobReport) Failures() []EntityResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []EntityResult
	for _, res := range r.Results {
		if res.Status == EntityFailed {
			out = append(out, res)
		}
	}
	return out
}

// JobOptions tunes how a job pages through and fans out over entities.
type JobOptions struct {
	BatchSize int
	Workers   int
}

func (o JobOptions) withDefaults() JobOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultJobBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultJobWorkers
	}
	return o
}

// forEachPage loads entities page by page using keyset pagination and runs
// handle for each one on a bounded worker pool. handle never aborts the scan;
// its result goes into report. A load error or cancellation stops the scan
// and leaves the remaining entities untouched for the next run.
func forEachPage[T any](
	ctx context.Context,
	opts JobOptions,
	report *JobReport,
	load func(ctx context.Context, afterID string, limit int) ([]T, error),
	id func(T) string,
	handle func(ctx context.Context, item T) EntityResult,
) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := load(ctx, afterID, opts.BatchSize)
		if err != nil {
			return err
		}

		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for _, item := range page {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				report.Add(handle(ctx, item))
				return nil
			})
		}
		_ = g.Wait()

		if len(page) < opts.BatchSize {
			return ctx.Err()
		}
		afterID = id(page[len(page)-1])
	}
}
