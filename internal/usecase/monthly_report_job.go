package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

const (
	reportPending = "pending"
	reportSent    = "sent"
	reportFailed  = "failed"

	reportMarkerTTL = 45 * 24 * time.Hour

	// A pending marker older than this belongs to a run that died before
	// recording an outcome, so the report is retried.
	reportPendingTimeout = time.Hour
)

// MonthlyReportJob sends every user a summary of the previous calendar month.
type MonthlyReportJob struct {
	userRepo        UserRepository
	transactionRepo TransactionRepository
	notifier        Notifier
	sent            IdempotencyStore
	location        *time.Location
	opts            JobOptions
	logger          zerolog.Logger
}

// NewMonthlyReportJob creates a new MonthlyReportJob. sent records which
// reports went out so reruns in the same month do not resend; it may be nil.
func NewMonthlyReportJob(
	userRepo UserRepository,
	transactionRepo TransactionRepository,
	notifier Notifier,
	sent IdempotencyStore,
	loc *time.Location,
	opts JobOptions,
	logger zerolog.Logger,
) *MonthlyReportJob {
	if loc == nil {
		loc = time.UTC
	}
	return &MonthlyReportJob{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		notifier:        notifier,
		sent:            sent,
		location:        loc,
		opts:            opts.withDefaults(),
		logger:          logger.With().Str("job", JobMonthlyReports).Logger(),
	}
}

// Name returns the job name.
func (j *MonthlyReportJob) Name() string { return JobMonthlyReports }

// Run reports on the month before now.
func (j *MonthlyReportJob) Run(ctx context.Context, now time.Time) (*JobReport, error) {
	report := NewJobReport(JobMonthlyReports, now)
	month := domain.StartOfMonth(now.In(j.location)).AddDate(0, -1, 0)

	err := forEachPage(ctx, j.opts, report,
		j.userRepo.List,
		func(u *domain.User) string { return u.ID },
		func(ctx context.Context, u *domain.User) EntityResult {
			return j.process(ctx, u, month, now)
		},
	)
	report.Finish()

	j.logger.Info().
		Str("month", month.Format("2006-01")).
		Int("sent", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("monthly report run finished")

	return report, err
}

func (j *MonthlyReportJob) process(ctx context.Context, user *domain.User, month, now time.Time) EntityResult {
	res := EntityResult{EntityID: user.ID, Attempts: 1}
	key := fmt.Sprintf("monthly-report:%s:%s", user.ID, month.Format("2006-01"))

	if j.sent != nil {
		marker := pendingMarker(now)
		exists, state, err := j.sent.CheckAndSet(ctx, key, marker, reportMarkerTTL)
		if err != nil {
			res.Status = EntityFailed
			res.Err = err
			return res
		}
		if exists {
			if !reportRetryable(string(state), now) {
				res.Status = EntitySkipped
				res.Reason = "report already " + markerState(string(state))
				return res
			}
			j.mark(ctx, key, string(marker))
		}
	}

	stats, err := j.stats(ctx, user.ID, month)
	if err != nil {
		return j.fail(ctx, key, res, err)
	}
	if stats.TransactionCount == 0 {
		j.mark(ctx, key, reportSent)
		res.Status = EntitySkipped
		res.Reason = "no transactions"
		return res
	}

	if err := j.notifier.Notify(ctx, domain.NewMonthlyReport(user, stats)); err != nil {
		return j.fail(ctx, key, res, domain.NotificationError(user.Email, err))
	}

	j.mark(ctx, key, reportSent)
	res.Status = EntityProcessed
	return res
}

func (j *MonthlyReportJob) stats(ctx context.Context, ownerID string, month time.Time) (domain.MonthlyStats, error) {
	from := month
	to := month.AddDate(0, 1, 0).Add(-time.Nanosecond)

	var all []*domain.Transaction
	filter := domain.TransactionFilter{From: &from, To: &to, Limit: 1000}
	for {
		page, err := j.transactionRepo.List(ctx, ownerID, filter)
		if err != nil {
			return domain.MonthlyStats{}, err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}

	return domain.ComputeMonthlyStats(month, all), nil
}

func (j *MonthlyReportJob) fail(ctx context.Context, key string, res EntityResult, err error) EntityResult {
	j.mark(ctx, key, reportFailed)
	j.logger.Error().Err(err).Str("user_id", res.EntityID).Msg("failed to send monthly report")
	res.Status = EntityFailed
	res.Err = err
	return res
}

// mark records the outcome even when ctx was cancelled mid-delivery, so the
// marker never stays pending for a user whose attempt already ended.
func (j *MonthlyReportJob) mark(ctx context.Context, key, state string) {
	if j.sent == nil {
		return
	}
	if err := j.sent.Update(context.WithoutCancel(ctx), key, []byte(state), reportMarkerTTL); err != nil {
		j.logger.Warn().Err(err).Str("key", key).Msg("failed to record monthly report state")
	}
}

// pendingMarker is "pending@<unix seconds>".
func pendingMarker(now time.Time) []byte {
	return []byte(reportPending + "@" + strconv.FormatInt(now.Unix(), 10))
}

func markerState(value string) string {
	state, _, _ := strings.Cut(value, "@")
	return state
}

// reportRetryable reports whether a stored marker lets the report be sent again.
func reportRetryable(value string, now time.Time) bool {
	state, since, _ := strings.Cut(value, "@")
	switch state {
	case reportFailed:
		return true
	case reportPending:
		started, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			return true
		}
		return now.Sub(time.Unix(started, 0)) >= reportPendingTimeout
	default:
		return false
	}
}
