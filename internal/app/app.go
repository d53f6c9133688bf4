// Package app wires configuration into the storage, locking, cache and event
// backends shared by the API server and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/lock"
	"github.com/segyhp/microloan-engine/internal/repository"
	"github.com/segyhp/microloan-engine/internal/repository/memory"
	"github.com/segyhp/microloan-engine/internal/service"
)

// App holds the service and the connections it was built on. DB, Redis and
// AMQP are nil when the corresponding backend is not configured.
type App struct {
	Service *service.LoanService
	DB      *sqlx.DB
	Redis   *redis.Client
	AMQP    *amqp.Connection

	logger *zap.Logger
}

// New connects every configured backend and builds the loan service
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	repos, err := a.initRepositories(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		locker    lock.Locker
		summaries cache.SummaryCache
	)
	if cfg.Redis.Enabled {
		a.Redis = initRedis(cfg)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = lock.NewRedisLocker(a.Redis, cfg.Business.LockTTL, cfg.Business.LockWaitTimeout, logger)
		summaries = cache.NewRedisSummaryCache(a.Redis, cfg.Business.SummaryCacheTTL)
		logger.Info("Using redis locker and summary cache", zap.String("addr", cfg.RedisAddr()))
	} else {
		locker = lock.NewKeyedMutex(cfg.Business.LockWaitTimeout)
		summaries = cache.NewNoopSummaryCache()
		logger.Info("Redis disabled, using in-process locker")
	}

	publisher := event.NewNoopPublisher()
	if cfg.Events.AMQPURL != "" {
		a.AMQP, err = amqp.Dial(cfg.Events.AMQPURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		publisher, err = event.NewRabbitMQPublisher(a.AMQP, cfg.Events.Exchange, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Service = service.NewLoanService(repos, locker, summaries, publisher, cfg, logger)
	return a, nil
}

func (a *App) initRepositories(ctx context.Context, cfg *config.Config) (service.Repositories, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore()
		seedMemoryStore(store)
		a.logger.Warn("Using in-memory store; data is lost on exit")
		return service.Repositories{
			Loans:     store.Loans(),
			Payments:  store.Payments(),
			Plans:     store.Plans(),
			Borrowers: store.Borrowers(),
			Tx:        store,
		}, nil
	}

	db, err := initDB(cfg)
	if err != nil {
		return service.Repositories{}, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return service.Repositories{}, err
		}
		a.logger.Info("Database schema migrated")
	}

	return service.Repositories{
		Loans:     repository.NewLoanRepository(db),
		Payments:  repository.NewPaymentRepository(db),
		Plans:     repository.NewPlanRepository(db),
		Borrowers: repository.NewBorrowerRepository(db),
		Tx:        repository.NewTransactor(db),
	}, nil
}

// seedMemoryStore gives a fresh in-memory deployment one plan and one borrower to work with
func seedMemoryStore(store *memory.Store) {
	store.PutPlan(domain.LoanPlan{
		ID:                 1,
		Months:             6,
		InterestPercentage: decimal.NewFromInt(5),
		PenaltyRate:        decimal.NewFromInt(2),
	})
	store.PutBorrower(domain.Borrower{ID: 1, Firstname: "Demo", Lastname: "Borrower", IDNo: "DEMO-1"})
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Close releases every open connection
func (a *App) Close() error {
	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
