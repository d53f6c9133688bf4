package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/lock"
	"github.com/segyhp/microloan-engine/internal/mocks"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

var refNoPattern = regexp.MustCompile(`^REF-\d+-[0-9A-F]{8}$`)

func TestCreateLoan(t *testing.T) {
	tests := []struct {
		name          string
		request       domain.CreateLoanRequest
		expectedError error
	}{
		{
			name:    "Success - pending loan with plan snapshot",
			request: domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: testPlanID, Amount: decimal.NewFromInt(10000), Purpose: "rice trading"},
		},
		{
			name:          "Failure - unknown plan",
			request:       domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: 99, Amount: decimal.NewFromInt(10000)},
			expectedError: customError.ErrPlanNotFound,
		},
		{
			name:          "Failure - unknown borrower",
			request:       domain.CreateLoanRequest{BorrowerID: 99, PlanID: testPlanID, Amount: decimal.NewFromInt(10000)},
			expectedError: customError.ErrBorrowerNotFound,
		},
		{
			name:          "Failure - zero amount",
			request:       domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: testPlanID, Amount: decimal.Zero},
			expectedError: customError.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			loan, err := f.svc.CreateLoan(context.Background(), tt.request)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, loan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.LoanStatusPending, loan.Status)
			assert.True(t, loan.Rate.Equal(decimal.NewFromInt(5)))
			assert.Equal(t, 6, loan.Term)
			assert.Regexp(t, refNoPattern, loan.RefNo)
			assert.Nil(t, loan.NextPaymentDate)

			stored, err := f.svc.GetLoan(context.Background(), loan.ID)
			require.NoError(t, err)
			assert.Equal(t, loan.RefNo, stored.RefNo)
		})
	}
}

func TestCreateLoan_PlanEditDoesNotTouchExistingLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan, err := f.svc.CreateLoan(ctx, domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: testPlanID, Amount: decimal.NewFromInt(10000)})
	require.NoError(t, err)

	_, err = f.svc.UpdatePlan(ctx, testPlanID, domain.UpdatePlanRequest{Months: 12, InterestPercentage: decimal.NewFromInt(8)})
	require.NoError(t, err)

	stored, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Term)
	assert.True(t, stored.Rate.Equal(decimal.NewFromInt(5)))
}

func TestTransitionStatus_ReleaseStartsScheduleNextDay(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC))

	loan := f.releasedLoan(t)

	require.NotNil(t, loan.FirstPaymentDate)
	assert.True(t, loan.FirstPaymentDate.Equal(day(2024, 1, 2)))
	assert.True(t, loan.NextPaymentDate.Equal(day(2024, 1, 2)))
	assert.Equal(t, 0, loan.PaidDays)

	events := f.publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.LoanStatusApproved, events[1].OldStatus)
	assert.Equal(t, domain.LoanStatusReleased, events[1].NewStatus)
	assert.Equal(t, event.TriggerTransition, events[1].Trigger)
}

func TestTransitionStatus_RejectsIllegalEdges(t *testing.T) {
	tests := []struct {
		name   string
		target domain.LoanStatus
	}{
		{"pending to released", domain.LoanStatusReleased},
		{"pending to closed", domain.LoanStatusClosed},
		{"pending to pending", domain.LoanStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			loan, err := f.svc.CreateLoan(ctx, domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: testPlanID, Amount: decimal.NewFromInt(500)})
			require.NoError(t, err)

			_, err = f.svc.TransitionStatus(ctx, loan.ID, tt.target)

			assert.ErrorIs(t, err, customError.ErrInvalidTransition)
			stored, _ := f.svc.GetLoan(ctx, loan.ID)
			assert.Equal(t, domain.LoanStatusPending, stored.Status)
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestTransitionStatus_RevertToPendingClearsSchedule(t *testing.T) {
	f := newFixture(t)
	loan := f.releasedLoan(t)
	f.pay(t, loan, "72.22")

	reverted, err := f.svc.TransitionStatus(context.Background(), loan.ID, domain.LoanStatusPending)

	require.NoError(t, err)
	assert.Nil(t, reverted.DateReleased)
	assert.Nil(t, reverted.FirstPaymentDate)
	assert.Nil(t, reverted.NextPaymentDate)
	assert.Equal(t, 0, reverted.PaidDays)
}

func TestTransitionStatus_LockConflict(t *testing.T) {
	locker := &mocks.MockLocker{}
	loanID := uuid.New()
	locker.On("Lock", mock.Anything, lock.LoanKey(loanID.String())).
		Return(nil, customError.WrapConcurrencyConflict("loan", context.DeadlineExceeded))

	svc := NewLoanService(Repositories{Tx: &mocks.PassthroughTransactor{}}, locker,
		cache.NewNoopSummaryCache(), event.NewNoopPublisher(), testConfig(), zap.NewNop())

	_, err := svc.TransitionStatus(context.Background(), loanID, domain.LoanStatusApproved)

	assert.ErrorIs(t, err, customError.ErrConcurrencyConflict)
	locker.AssertExpectations(t)
}

func TestGetScheduleSummary(t *testing.T) {
	f := newFixture(t)
	loan := f.releasedLoan(t)
	f.pay(t, loan, "72.22")
	f.pay(t, loan, "100")

	summary, err := f.svc.GetScheduleSummary(context.Background(), loan.ID)

	require.NoError(t, err)
	assert.Equal(t, "3000", summary.TotalInterest.String())
	assert.Equal(t, "13000", summary.TotalPayable.String())
	assert.Equal(t, "72.22", summary.DailyPayment.StringFixed(2))
	assert.Equal(t, "172.22", summary.TotalPaid.String())
	assert.Equal(t, "12827.78", summary.PendingBalance.String())
	assert.Equal(t, 2, summary.PaidDays)
	assert.Equal(t, 180, summary.TotalDays)
	assert.Equal(t, 178, summary.RemainingDays)
	assert.True(t, summary.NextPaymentDate.Equal(day(2024, 1, 4)))
	assert.True(t, summary.MaturityDate.Equal(day(2024, 6, 29)))
	assert.Equal(t, "Juan Dela Cruz", summary.BorrowerName)
}

func TestGetScheduleSummary_CacheHitSkipsStore(t *testing.T) {
	summaries := &mocks.MockSummaryCache{}
	loanRepo := &mocks.MockLoanRepository{}
	loanID := uuid.New()
	cached := &domain.ScheduleSummary{LoanID: loanID.String(), PaidDays: 4}
	summaries.On("Get", mock.Anything, loanID.String()).Return(cached, true, nil)

	svc := NewLoanService(Repositories{Loans: loanRepo}, lock.NewKeyedMutex(time.Second),
		summaries, event.NewNoopPublisher(), testConfig(), zap.NewNop())

	got, err := svc.GetScheduleSummary(context.Background(), loanID)

	require.NoError(t, err)
	assert.Same(t, cached, got)
	loanRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetScheduleSummary_MissPopulatesCache(t *testing.T) {
	summaries := &mocks.MockSummaryCache{}
	loanRepo := &mocks.MockLoanRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	borrowerRepo := &mocks.MockBorrowerRepository{}

	first := day(2024, 1, 2)
	loan := &domain.Loan{
		ID: uuid.New(), BorrowerID: 3, Amount: decimal.NewFromInt(1000), Rate: decimal.NewFromInt(5), Term: 1,
		Status: domain.LoanStatusReleased, FirstPaymentDate: &first, NextPaymentDate: &first,
	}

	summaries.On("Get", mock.Anything, loan.ID.String()).Return(nil, false, errors.New("redis down"))
	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	paymentRepo.On("SumByLoan", mock.Anything, loan.ID).Return(decimal.NewFromInt(50), nil)
	borrowerRepo.On("GetByID", mock.Anything, int64(3)).Return(nil, customError.WrapBorrowerNotFound(3))
	summaries.On("Set", mock.Anything, mock.MatchedBy(func(s *domain.ScheduleSummary) bool {
		return s.LoanID == loan.ID.String() && s.TotalPaid.Equal(decimal.NewFromInt(50))
	})).Return(nil)

	svc := NewLoanService(Repositories{Loans: loanRepo, Payments: paymentRepo, Borrowers: borrowerRepo, Tx: &mocks.PassthroughTransactor{}},
		lock.NewKeyedMutex(time.Second), summaries, event.NewNoopPublisher(), testConfig(), zap.NewNop())

	summary, err := svc.GetScheduleSummary(context.Background(), loan.ID)

	require.NoError(t, err)
	assert.Equal(t, "1000", summary.PendingBalance.String())
	assert.Empty(t, summary.BorrowerName)
	summaries.AssertExpectations(t)
}

func TestClassifyDue(t *testing.T) {
	f := newFixture(t)
	loan := f.releasedLoan(t) // first payment 2024-01-02

	tests := []struct {
		now      time.Time
		expected domain.DueLabel
	}{
		{time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC), domain.DueToday},
		{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), domain.DueTomorrow},
		{time.Date(2024, 1, 3, 0, 0, 1, 0, time.UTC), domain.Overdue},
		{time.Date(2023, 12, 30, 12, 0, 0, 0, time.UTC), domain.Upcoming},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			label, err := f.svc.ClassifyDue(context.Background(), loan.ID, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, label)
		})
	}
}

func TestClassifyDue_PendingLoanHasNoSchedule(t *testing.T) {
	f := newFixture(t)
	loan, err := f.svc.CreateLoan(context.Background(), domain.CreateLoanRequest{BorrowerID: testBorrowerID, PlanID: testPlanID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = f.svc.ClassifyDue(context.Background(), loan.ID, f.clock.Now())

	assert.ErrorIs(t, err, customError.ErrScheduleNotInitialized)
}

func TestUpdatePlan(t *testing.T) {
	tests := []struct {
		name          string
		releaseLoan   bool
		request       domain.UpdatePlanRequest
		expectedError error
	}{
		{
			name:    "Success - unused plan",
			request: domain.UpdatePlanRequest{Months: 12, InterestPercentage: decimal.NewFromInt(4), PenaltyRate: decimal.NewFromInt(1)},
		},
		{
			name:          "Failure - referenced by released loan",
			releaseLoan:   true,
			request:       domain.UpdatePlanRequest{Months: 12, InterestPercentage: decimal.NewFromInt(4)},
			expectedError: customError.ErrPlanInUse,
		},
		{
			name:          "Failure - negative rate",
			request:       domain.UpdatePlanRequest{Months: 12, InterestPercentage: decimal.NewFromInt(-1)},
			expectedError: customError.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.releaseLoan {
				f.releasedLoan(t)
			}

			plan, err := f.svc.UpdatePlan(context.Background(), testPlanID, tt.request)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				stored, _ := f.svc.PlanRepo.GetByID(context.Background(), testPlanID)
				assert.Equal(t, 6, stored.Months)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 12, plan.Months)
		})
	}
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	loan := f.releasedLoan(t)

	payments, err := f.svc.ListPayments(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NotNil(t, payments)

	f.pay(t, loan, "10")
	f.pay(t, loan, "20")
	payments, err = f.svc.ListPayments(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = f.svc.ListPayments(context.Background(), uuid.New())
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestCreateLoan_UnknownPlan(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	planRepo := &mocks.MockPlanRepository{}
	borrowerRepo := &mocks.MockBorrowerRepository{}

	borrowerRepo.On("GetByID", mock.Anything, int64(7)).Return(&domain.Borrower{ID: 7}, nil)
	planRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, customError.WrapPlanNotFound(99))

	svc := NewLoanService(Repositories{Loans: loanRepo, Plans: planRepo, Borrowers: borrowerRepo},
		lock.NewKeyedMutex(time.Second), cache.NewNoopSummaryCache(), event.NewNoopPublisher(), testConfig(), zap.NewNop())

	_, err := svc.CreateLoan(context.Background(), domain.CreateLoanRequest{BorrowerID: 7, PlanID: 99, Amount: decimal.NewFromInt(500)})

	assert.ErrorIs(t, err, customError.ErrPlanNotFound)
	planRepo.AssertExpectations(t)
	loanRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
