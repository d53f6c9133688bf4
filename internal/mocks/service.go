package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/microloan-engine/internal/domain"
)

// MockLoanService is a mock implementation of handler.LoanService
type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, req domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) TransitionStatus(ctx context.Context, loanID uuid.UUID, target domain.LoanStatus) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLoanService) GetScheduleSummary(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleSummary, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleSummary), args.Error(1)
}

func (m *MockLoanService) ClassifyDue(ctx context.Context, loanID uuid.UUID, now time.Time) (domain.DueLabel, error) {
	args := m.Called(ctx, loanID, now)
	return args.Get(0).(domain.DueLabel), args.Error(1)
}

func (m *MockLoanService) AddPayment(ctx context.Context, loanID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error) {
	args := m.Called(ctx, loanID, payee, amount, penalty)
	return loanAndPayment(args)
}

func (m *MockLoanService) EditPayment(ctx context.Context, paymentID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error) {
	args := m.Called(ctx, paymentID, payee, amount, penalty)
	return loanAndPayment(args)
}

func loanAndPayment(args mock.Arguments) (*domain.Loan, *domain.Payment, error) {
	var (
		loan    *domain.Loan
		payment *domain.Payment
	)
	if args.Get(0) != nil {
		loan = args.Get(0).(*domain.Loan)
	}
	if args.Get(1) != nil {
		payment = args.Get(1).(*domain.Payment)
	}
	return loan, payment, args.Error(2)
}

func (m *MockLoanService) DeletePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ReconcileLoan(ctx context.Context, loanID uuid.UUID) (bool, error) {
	args := m.Called(ctx, loanID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanService) ReconcileAll(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanService) ListCollections(ctx context.Context, now time.Time, filter domain.CollectionFilter) ([]domain.CollectionItem, error) {
	args := m.Called(ctx, now, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CollectionItem), args.Error(1)
}

func (m *MockLoanService) PortfolioReport(ctx context.Context) (*domain.PortfolioReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioReport), args.Error(1)
}

func (m *MockLoanService) MonthlyCollections(ctx context.Context, from, to time.Time) ([]domain.MonthlyCollection, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyCollection), args.Error(1)
}

func (m *MockLoanService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

func (m *MockLoanService) UpdatePlan(ctx context.Context, planID int64, req domain.UpdatePlanRequest) (*domain.LoanPlan, error) {
	args := m.Called(ctx, planID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanPlan), args.Error(1)
}
