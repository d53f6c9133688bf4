package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/lock"
	"github.com/segyhp/microloan-engine/internal/mocks"
	"github.com/segyhp/microloan-engine/internal/repository"
)

// interleavingPaymentRepo runs during once, from inside the first SumByLoan call
type interleavingPaymentRepo struct {
	repository.PaymentRepository
	once   sync.Once
	during func()
}

func (r *interleavingPaymentRepo) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	if r.during != nil {
		r.once.Do(r.during)
	}
	return r.PaymentRepository.SumByLoan(ctx, loanID)
}

func TestGetScheduleSummary_ConcurrentPaymentNeverLeavesStaleCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	f.svc.summaries = cache.NewRedisSummaryCache(rdb, time.Minute)

	loan := f.releasedLoan(t)

	payments := &interleavingPaymentRepo{PaymentRepository: f.svc.PaymentRepo}
	f.svc.PaymentRepo = payments

	paid := make(chan error, 1)
	payments.during = func() {
		go func() {
			_, _, err := f.svc.AddPayment(ctx, loan.ID, "Juan", decimal.NewFromInt(100), decimal.Zero)
			paid <- err
		}()
		// give the payment every chance to slip in between the reads
		time.Sleep(50 * time.Millisecond)
	}

	first, err := f.svc.GetScheduleSummary(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.PaidDays)
	assert.True(t, first.TotalPaid.IsZero(), "total paid %s", first.TotalPaid)

	require.NoError(t, <-paid)
	assert.False(t, mr.Exists("loan:"+loan.ID.String()+":summary"))

	second, err := f.svc.GetScheduleSummary(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.PaidDays)
	assert.Equal(t, "100", second.TotalPaid.String())
	assert.True(t, mr.Exists("loan:"+loan.ID.String()+":summary"))
}

func TestGetScheduleSummary_DatesInBusinessLocation(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	borrowerRepo := &mocks.MockBorrowerRepository{}

	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 2024-01-10 02:00 IST as a UTC session hands it back
	released := time.Date(2024, 1, 9, 20, 30, 0, 0, time.UTC)
	first := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)
	next := first
	loan := &domain.Loan{
		ID: uuid.New(), BorrowerID: 3, Amount: decimal.NewFromInt(1000), Rate: decimal.NewFromInt(5), Term: 1,
		Status: domain.LoanStatusReleased, DateReleased: &released, FirstPaymentDate: &first, NextPaymentDate: &next,
	}

	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	paymentRepo.On("SumByLoan", mock.Anything, loan.ID).Return(decimal.Zero, nil)
	borrowerRepo.On("GetByID", mock.Anything, int64(3)).Return(&domain.Borrower{ID: 3, Firstname: "Asha", Lastname: "Rao"}, nil)

	cfg := testConfig()
	cfg.Scheduler = config.SchedulerConfig{Timezone: "Asia/Kolkata"}
	svc := NewLoanService(
		Repositories{Loans: loanRepo, Payments: paymentRepo, Borrowers: borrowerRepo, Tx: &mocks.PassthroughTransactor{}},
		lock.NewKeyedMutex(time.Second), cache.NewNoopSummaryCache(), event.NewNoopPublisher(), cfg, zap.NewNop(),
	)

	summary, err := svc.GetScheduleSummary(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-09", summary.MaturityDate.Format("2006-01-02"))
	assert.Equal(t, ist.String(), summary.MaturityDate.Location().String())
	assert.Equal(t, "2024-01-11", summary.NextPaymentDate.Format("2006-01-02"))
}
