package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/adapter/classifier"
	httpAdapter "github.com/iho/welth/internal/adapter/http"
	"github.com/iho/welth/internal/adapter/http/handler"
	"github.com/iho/welth/internal/adapter/http/middleware"
	"github.com/iho/welth/internal/adapter/notifier"
	"github.com/iho/welth/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/welth/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/welth/internal/adapter/repository/redis"
	"github.com/iho/welth/internal/infrastructure/auth"
	"github.com/iho/welth/internal/infrastructure/config"
	"github.com/iho/welth/internal/infrastructure/metrics"
	"github.com/iho/welth/internal/infrastructure/postgres"
	"github.com/iho/welth/internal/infrastructure/ratelimit"
	"github.com/iho/welth/internal/infrastructure/redis"
	"github.com/iho/welth/internal/infrastructure/scheduler"
	"github.com/iho/welth/internal/usecase"
)

// storage is the set of repositories behind one store driver.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	budgets      usecase.BudgetRepository
	users        usecase.UserRepository
	ledger       usecase.LedgerRepository
	ping         handler.Pinger
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			budgets:      memory.NewBudgetRepository(store),
			users:        memory.NewUserRepository(store),
			ledger:       memory.NewLedgerRepository(store),
			close:        func() {},
		}, nil
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to postgres")

	return &storage{
		txManager:    postgresRepo.NewTxManager(pool),
		accounts:     postgresRepo.NewAccountRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		budgets:      postgresRepo.NewBudgetRepository(pool),
		users:        postgresRepo.NewUserRepository(pool),
		ledger:       postgresRepo.NewLedgerRepository(pool),
		ping:         handler.PingFunc(pool.Ping),
		close:        pool.Close,
	}, nil
}

// app is the fully wired service.
type app struct {
	handler   http.Handler
	scheduler *scheduler.Scheduler
	limiter   *ratelimit.Limiter
	closers   []func()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	checks := map[string]handler.Pinger{}
	if store.ping != nil {
		checks["postgres"] = store.ping
	}

	// Redis is optional: without it views are not cached and idempotency keys are ignored.
	var (
		viewCache   usecase.ViewCache
		idempotency *redisRepo.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, redis.Options{URL: cfg.RedisURL, ConnectTimeout: cfg.DatabaseTimeout, Logger: logger})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logger.Info().Msg("connected to redis")

		viewCache = redisRepo.NewViewCache(client)
		idempotency = redisRepo.NewIdempotencyStore(client)
		checks["redis"] = redis.NewPinger(client)
	}

	notify, err := newNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := notify.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { _ = closer.Close() })
	}
	instrumented := notifier.NewInstrumented(notify, m)

	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(logger)

	var invalidator usecase.ViewInvalidator
	if viewCache != nil {
		invalidator = viewCache
	}

	accountUC := usecase.NewAccountUseCase(store.txManager, store.accounts, store.transactions, idGen, invalidator)
	transactionUC := usecase.NewTransactionUseCase(store.txManager, store.accounts, store.transactions, idGen, invalidator, logger)
	budgetUC := usecase.NewBudgetUseCase(store.budgets, store.accounts, store.transactions, idGen, invalidator, location)
	dashboardUC := usecase.NewDashboardUseCase(store.accounts, store.transactions, budgetUC, viewCache, cfg.ViewCacheTTL, logger)
	reconciliationUC := usecase.NewReconciliationUseCase(store.ledger)
	userUC := usecase.NewUserUseCase(store.users)

	opts := usecase.JobOptions{BatchSize: cfg.JobBatchSize, Workers: cfg.JobWorkers}

	var reportMarkers usecase.IdempotencyStore
	if idempotency != nil {
		reportMarkers = idempotency
	}

	jobs := []scheduler.Entry{
		{
			Job:      usecase.NewRecurringJob(transactionUC, store.txManager, store.transactions, idGen, retrier, opts, logger),
			Schedule: cfg.RecurringCron,
		},
		{
			Job:      usecase.NewBudgetAlertJob(store.budgets, store.accounts, store.transactions, store.users, instrumented, location, opts, logger),
			Schedule: cfg.BudgetAlertCron,
		},
		{
			Job:      usecase.NewMonthlyReportJob(store.users, store.transactions, instrumented, reportMarkers, location, opts, logger),
			Schedule: cfg.MonthlyReportCron,
		},
	}
	if !cfg.SchedulerEnabled {
		// Jobs stay available to the admin endpoints.
		for i := range jobs {
			jobs[i].Schedule = ""
		}
	}

	a.scheduler, err = scheduler.New(scheduler.Config{
		Entries:     jobs,
		Logger:      logger,
		Observer:    m,
		Location:    location,
		MaxAttempts: cfg.JobMaxAttempts,
		BaseDelay:   cfg.JobBaseDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	a.limiter = ratelimit.New(ratelimit.Config{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Blocked:  cfg.RateLimitBlocklist,
	})

	var verifier middleware.TokenVerifier
	if cfg.AuthEnabled {
		verifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC).WithObserver(m),
		BudgetHandler:      handler.NewBudgetHandler(budgetUC),
		DashboardHandler:   handler.NewDashboardHandler(dashboardUC),
		AdminHandler:       handler.NewAdminHandler(a.scheduler, reconciliationUC),
		HealthHandler:      handler.NewHealthHandler(checks),
		Authenticator:      middleware.NewAuthenticator(verifier, userUC, cfg.AuthEnabled, cfg.DevOwnerID),
		RateLimiter:        a.limiter,
		RateLimitObserver:  m,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		Logger:             logger,
	}
	if idempotency != nil {
		routerCfg.IdempotencyStore = idempotency
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		routerCfg.ReceiptHandler = handler.NewReceiptHandler(usecase.NewReceiptUseCase(gemini), m)
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, receipt scanning disabled")
	}

	a.handler = httpAdapter.NewRouter(routerCfg)

	return a, nil
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) (usecase.Notifier, error) {
	if cfg.AMQPURL == "" {
		logger.Warn().Msg("AMQP_URL not set, notifications are only logged")
		return notifier.NewLog(logger), nil
	}

	n, err := notifier.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}
	logger.Info().Str("exchange", cfg.AMQPExchange).Msg("connected to amqp")
	return n, nil
}
