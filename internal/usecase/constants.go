package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultJobBatchSize is how many entities a job loads per page
	DefaultJobBatchSize = 200

	// DefaultJobWorkers is how many entities a job processes concurrently
	DefaultJobWorkers = 8

	// DashboardRecentTransactions is how many transactions the dashboard shows
	DashboardRecentTransactions = 5
)
