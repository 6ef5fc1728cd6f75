package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redisrepo "github.com/iho/welth/internal/adapter/repository/redis"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
	"github.com/iho/welth/internal/usecase/mocks"
)

func (f *fixture) reportJob(notifier usecase.Notifier, sent usecase.IdempotencyStore) *usecase.MonthlyReportJob {
	return usecase.NewMonthlyReportJob(f.users, f.transactions, notifier, sent, time.UTC,
		usecase.JobOptions{BatchSize: 10, Workers: 2}, zerolog.Nop())
}

func TestMonthlyReportJob_SendsPreviousMonthOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAccount(t, "acc-1", owner, "1000.00", true)

	income := expenseInput("acc-1", "3000.00", day(2024, time.April, 1))
	income.Type = domain.TransactionTypeIncome
	income.Category = "salary"
	for _, in := range []domain.TransactionInput{
		income,
		expenseInput("acc-1", "120.50", day(2024, time.April, 10)),
		expenseInput("acc-1", "79.50", day(2024, time.April, 30)),
		expenseInput("acc-1", "999.00", day(2024, time.May, 1)),
	} {
		_, err := f.engine.CreateTransaction(ctx, owner, in)
		require.NoError(t, err)
	}

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n domain.Notification) error {
			assert.Equal(t, domain.TemplateMonthlyReport, n.Template)
			assert.Equal(t, "Your Monthly Financial Report - April 2024", n.Subject)
			payload, ok := n.Payload.(domain.MonthlyReportPayload)
			require.True(t, ok)
			assert.Equal(t, 3, payload.Stats.TransactionCount)
			assert.Equal(t, "3000.00", payload.Stats.TotalIncome.String())
			assert.Equal(t, "200.00", payload.Stats.TotalExpenses.String())
			assert.Equal(t, "2800.00", payload.Stats.Net().String())
			assert.Equal(t, "200.00", payload.Stats.ByCategory["groceries"].String())
			return nil
		}).
		Times(1)

	sent := mocks.NewMockIdempotencyStore()
	job := f.reportJob(notifier, sent)
	now := time.Date(2024, time.May, 1, 0, 5, 0, 0, time.UTC)

	report, err := job.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, "sent", string(sent.Value("monthly-report:user_1:2024-04")))

	report, err = job.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "report already sent", report.Results[0].Reason)
}

func TestMonthlyReportJob_RetriesAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAccount(t, "acc-1", owner, "0.00", true)
	_, err := f.engine.CreateTransaction(ctx, owner, expenseInput("acc-1", "10.00", day(2024, time.April, 2)))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	gomock.InOrder(
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil),
	)

	sent := mocks.NewMockIdempotencyStore()
	job := f.reportJob(notifier, sent)
	now := day(2024, time.May, 1)

	report, err := job.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Failures()[0].Err, domain.ErrNotification)
	assert.Equal(t, "failed", string(sent.Value("monthly-report:user_1:2024-04")))

	report, err = job.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
}

func TestMonthlyReportJob_SkipsQuietMonths(t *testing.T) {
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	report, err := f.reportJob(notifier, nil).Run(context.Background(), day(2024, time.March, 1))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, usecase.EntitySkipped, report.Results[0].Status)
	assert.Equal(t, "no transactions", report.Results[0].Reason)
}

func TestMonthlyReportJob_CancelledDeliveryIsRetried(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc-1", owner, "0.00", true)
	_, err := f.engine.CreateTransaction(context.Background(), owner, expenseInput("acc-1", "10.00", day(2024, time.April, 2)))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sent := redisrepo.NewIdempotencyStore(client)

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	gomock.InOrder(
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ domain.Notification) error {
				cancel()
				return ctx.Err()
			}),
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil),
	)

	job := f.reportJob(notifier, sent)
	now := day(2024, time.May, 1)

	report, err := job.Run(ctx, now)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Failed)

	report, err = job.Run(context.Background(), now.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Skipped)
}

func TestMonthlyReportJob_PendingMarkers(t *testing.T) {
	now := day(2024, time.May, 1).Add(12 * time.Hour)

	tests := []struct {
		name      string
		startedAt time.Time
		processed int
		skipped   int
	}{
		{name: "stale pending is retried", startedAt: now.Add(-2 * time.Hour), processed: 1},
		{name: "fresh pending is left to its run", startedAt: now.Add(-10 * time.Minute), skipped: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.seedAccount(t, "acc-1", owner, "0.00", true)
			_, err := f.engine.CreateTransaction(ctx, owner, expenseInput("acc-1", "10.00", day(2024, time.April, 2)))
			require.NoError(t, err)

			sent := mocks.NewMockIdempotencyStore()
			key := "monthly-report:user_1:2024-04"
			require.NoError(t, sent.Update(ctx, key, []byte("pending@"+strconv.FormatInt(tt.startedAt.Unix(), 10)), time.Hour))

			ctrl := gomock.NewController(t)
			notifier := mocks.NewMockNotifier(ctrl)
			notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(tt.processed)

			report, err := f.reportJob(notifier, sent).Run(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, tt.processed, report.Processed)
			assert.Equal(t, tt.skipped, report.Skipped)
			if tt.skipped == 1 {
				assert.Equal(t, "report already pending", report.Results[0].Reason)
			} else {
				assert.Equal(t, "sent", string(sent.Value(key)))
			}
		})
	}
}
