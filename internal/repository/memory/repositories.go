package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

type loanRepository struct {
	s *Store
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.loans[loan.ID]; exists {
		return customError.WrapDatabaseError(errDuplicate("loan", loan.ID.String()))
	}
	for _, l := range r.s.loans {
		if l.RefNo == loan.RefNo {
			return customError.WrapDatabaseError(errDuplicate("ref_no", loan.RefNo))
		}
	}

	r.s.loans[loan.ID] = loan.Clone()
	journal(ctx, func() { delete(r.s.loans, loan.ID) })
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	loan, ok := r.s.loans[id]
	if !ok {
		return nil, customError.WrapLoanNotFound(id.String())
	}
	return loan.Clone(), nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if err := r.s.lockRow(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *loanRepository) GetByRefNo(ctx context.Context, refNo string) (*domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, loan := range r.s.loans {
		if loan.RefNo == refNo {
			return loan.Clone(), nil
		}
	}
	return nil, customError.WrapLoanNotFound(refNo)
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var loans []*domain.Loan
	for _, loan := range r.s.loans {
		if !matches(loan, filter) {
			continue
		}
		loans = append(loans, loan.Clone())
	}
	sortLoans(loans)
	return loans, nil
}

func matches(loan *domain.Loan, filter domain.LoanFilter) bool {
	if filter.BorrowerID != nil && loan.BorrowerID != *filter.BorrowerID {
		return false
	}
	if filter.PlanID != nil && loan.PlanID != *filter.PlanID {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, s := range filter.Statuses {
		if loan.Status == s {
			return true
		}
	}
	return false
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.loans[loan.ID]
	if !ok {
		return customError.WrapLoanNotFound(loan.ID.String())
	}

	src := loan.Clone()
	next := prev.Clone()
	next.Status = src.Status
	next.DateReleased = src.DateReleased
	next.FirstPaymentDate = src.FirstPaymentDate
	next.NextPaymentDate = src.NextPaymentDate
	next.PaidDays = src.PaidDays
	next.UpdatedAt = src.UpdatedAt

	r.s.loans[loan.ID] = next
	journal(ctx, func() { r.s.loans[loan.ID] = prev })
	return nil
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.loans[id]
	if !ok {
		return customError.WrapLoanNotFound(id.String())
	}
	delete(r.s.loans, id)

	removed := make(map[uuid.UUID]*domain.Payment)
	for pid, p := range r.s.payments {
		if p.LoanID == id {
			removed[pid] = p
			delete(r.s.payments, pid)
		}
	}

	journal(ctx, func() {
		r.s.loans[id] = prev
		for pid, p := range removed {
			r.s.payments[pid] = p
		}
	})
	return nil
}

func (r *loanRepository) CountByPlan(ctx context.Context, planID int64, statuses []domain.LoanStatus) (int, error) {
	loans, err := r.List(ctx, domain.LoanFilter{Statuses: statuses, PlanID: &planID})
	if err != nil {
		return 0, err
	}
	return len(loans), nil
}

type paymentRepository struct {
	s *Store
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.loans[payment.LoanID]; !ok {
		return customError.WrapLoanNotFound(payment.LoanID.String())
	}
	if _, exists := r.s.payments[payment.ID]; exists {
		return customError.WrapDatabaseError(errDuplicate("payment", payment.ID.String()))
	}

	r.s.payments[payment.ID] = clonePayment(payment)
	journal(ctx, func() { delete(r.s.payments, payment.ID) })
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, customError.WrapPaymentNotFound(id.String())
	}
	return clonePayment(p), nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.payments[payment.ID]
	if !ok {
		return customError.WrapPaymentNotFound(payment.ID.String())
	}

	next := clonePayment(prev)
	next.Payee = payment.Payee
	next.Amount = payment.Amount
	next.PenaltyAmount = payment.PenaltyAmount
	next.UpdatedAt = payment.UpdatedAt

	r.s.payments[payment.ID] = next
	journal(ctx, func() { r.s.payments[payment.ID] = prev })
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.payments[id]
	if !ok {
		return customError.WrapPaymentNotFound(id.String())
	}
	delete(r.s.payments, id)
	journal(ctx, func() { r.s.payments[id] = prev })
	return nil
}

func (r *paymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var payments []*domain.Payment
	for _, p := range r.s.payments {
		if p.LoanID == loanID {
			payments = append(payments, clonePayment(p))
		}
	}
	sortPayments(payments)
	return payments, nil
}

func (r *paymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range r.s.payments {
		if p.LoanID == loanID {
			total = total.Add(p.Total())
		}
	}
	return total, nil
}

func (r *paymentRepository) TotalsByLoan(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, p := range r.s.payments {
		totals[p.LoanID] = totals[p.LoanID].Add(p.Total())
	}
	return totals, nil
}

func (r *paymentRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var payments []*domain.Payment
	for _, p := range r.s.payments {
		if !p.DateCreated.Before(from) && p.DateCreated.Before(to) {
			payments = append(payments, clonePayment(p))
		}
	}
	sortPayments(payments)
	return payments, nil
}

type planRepository struct {
	s *Store
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.LoanPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	plan, ok := r.s.plans[id]
	if !ok {
		return nil, customError.WrapPlanNotFound(id)
	}
	c := *plan
	return &c, nil
}

func (r *planRepository) Update(ctx context.Context, plan *domain.LoanPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.plans[plan.ID]
	if !ok {
		return customError.WrapPlanNotFound(plan.ID)
	}
	next := *plan
	r.s.plans[plan.ID] = &next
	journal(ctx, func() { r.s.plans[plan.ID] = prev })
	return nil
}

type borrowerRepository struct {
	s *Store
}

func (r *borrowerRepository) GetByID(ctx context.Context, id int64) (*domain.Borrower, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.borrowers[id]
	if !ok {
		return nil, customError.WrapBorrowerNotFound(id)
	}
	c := *b
	return &c, nil
}

func (r *borrowerRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.borrowers), nil
}
