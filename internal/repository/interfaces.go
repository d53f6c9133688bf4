package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microloan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByRefNo retrieves a loan by its reference number
	GetByRefNo(ctx context.Context, refNo string) (*domain.Loan, error)

	// List returns loans matching the filter, oldest first
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// Update persists status and schedule fields
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByPlan counts loans of a plan in any of the given statuses
	CountByPlan(ctx context.Context, planID int64, statuses []domain.LoanStatus) (int, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves one payment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// Update changes payee, amount and penalty
	Update(ctx context.Context, payment *domain.Payment) error

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByLoan retrieves all payments for a loan, oldest first
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// SumByLoan totals amount plus penalty for a loan
	SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)

	// TotalsByLoan totals amount plus penalty per loan
	TotalsByLoan(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error)

	// ListCreatedBetween returns payments created in [from, to)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Payment, error)
}

// PlanRepository reads and edits loan plans
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.LoanPlan, error)
	Update(ctx context.Context, plan *domain.LoanPlan) error
}

// BorrowerRepository reads borrower records
type BorrowerRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Borrower, error)
	Count(ctx context.Context) (int, error)
}

// Transactor runs fn inside one store transaction. Repository calls made with
// the ctx passed to fn join that transaction; fn returning an error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
