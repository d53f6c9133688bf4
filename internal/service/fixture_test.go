package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/lock"
	"github.com/segyhp/microloan-engine/internal/repository/memory"
)

const (
	testPlanID     int64 = 1
	testBorrowerID int64 = 7
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.LoanStatusChangedEvent
}

func (p *recordingPublisher) PublishLoanStatusChanged(_ context.Context, evt event.LoanStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Events() []event.LoanStatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.LoanStatusChangedEvent(nil), p.events...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store     *memory.Store
	svc       *LoanService
	clock     *testClock
	publisher *recordingPublisher
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Business: config.BusinessConfig{
			LockWaitTimeout:      2 * time.Second,
			ReconcileConcurrency: 4,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutPlan(domain.LoanPlan{
		ID:                 testPlanID,
		Months:             6,
		InterestPercentage: decimal.NewFromInt(5),
		PenaltyRate:        decimal.NewFromInt(2),
	})
	store.PutBorrower(domain.Borrower{
		ID:        testBorrowerID,
		Firstname: "Juan",
		Lastname:  "Dela Cruz",
		IDNo:      "ID-778",
	})

	clock := &testClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	publisher := &recordingPublisher{}
	cfg := testConfig()

	svc := NewLoanService(
		Repositories{
			Loans:     store.Loans(),
			Payments:  store.Payments(),
			Plans:     store.Plans(),
			Borrowers: store.Borrowers(),
			Tx:        store,
		},
		lock.NewKeyedMutex(cfg.Business.LockWaitTimeout),
		cache.NewNoopSummaryCache(),
		publisher,
		cfg,
		zap.NewNop(),
		WithClock(clock.Now),
	)

	return &fixture{store: store, svc: svc, clock: clock, publisher: publisher}
}

// releasedLoan creates a 10000 / 5% / 6 month loan and releases it at the fixture's clock
func (f *fixture) releasedLoan(t *testing.T) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	loan, err := f.svc.CreateLoan(ctx, domain.CreateLoanRequest{
		BorrowerID: testBorrowerID,
		PlanID:     testPlanID,
		Amount:     decimal.NewFromInt(10000),
	})
	require.NoError(t, err)

	_, err = f.svc.TransitionStatus(ctx, loan.ID, domain.LoanStatusApproved)
	require.NoError(t, err)
	loan, err = f.svc.TransitionStatus(ctx, loan.ID, domain.LoanStatusReleased)
	require.NoError(t, err)
	return loan
}

func (f *fixture) pay(t *testing.T, loan *domain.Loan, amount string) (*domain.Loan, *domain.Payment) {
	t.Helper()
	updated, payment, err := f.svc.AddPayment(context.Background(), loan.ID, "Juan", decimal.RequireFromString(amount), decimal.Zero)
	require.NoError(t, err)
	return updated, payment
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
