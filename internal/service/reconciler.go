package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/monitoring"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// AddPayment records a payment against a released loan, advances its
// schedule by one day and closes it once either closure criterion holds.
func (s *LoanService) AddPayment(ctx context.Context, loanID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error) {
	if err := domain.ValidatePaymentAmounts(amount, penalty); err != nil {
		monitoring.RecordPayment("add", err)
		return nil, nil, err
	}

	var payment *domain.Payment
	loan, err := s.withLoan(ctx, loanID, event.TriggerPayment, func(ctx context.Context, loan *domain.Loan) error {
		if loan.Status != domain.LoanStatusReleased {
			return customError.WrapInvalidLoanState(loan.ID.String(), loan.Status.String())
		}

		now := s.Now()
		payment = &domain.Payment{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			Payee:         payee,
			Amount:        amount,
			PenaltyAmount: penalty,
			DateCreated:   now,
			UpdatedAt:     now,
		}
		if err := s.PaymentRepo.Create(ctx, payment); err != nil {
			return err
		}

		if err := loan.AdvanceSchedule(); err != nil {
			return err
		}
		loan.UpdatedAt = now

		if _, err := s.closeIfSettled(ctx, loan, now); err != nil {
			return err
		}
		return s.LoanRepo.Update(ctx, loan)
	})
	monitoring.RecordPayment("add", err)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("loan_id", loan.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int("paid_days", loan.PaidDays),
	)
	return loan, payment, nil
}

// DeletePayment retracts a payment: the schedule steps back one day and a
// closed loan is reopened.
func (s *LoanService) DeletePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Loan, error) {
	existing, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		monitoring.RecordPayment("delete", err)
		return nil, err
	}

	loan, err := s.withLoan(ctx, existing.LoanID, event.TriggerReversal, func(ctx context.Context, loan *domain.Loan) error {
		// re-read under the lock; a concurrent delete may have won
		if _, err := s.PaymentRepo.GetByID(ctx, paymentID); err != nil {
			return err
		}
		if err := s.PaymentRepo.Delete(ctx, paymentID); err != nil {
			return err
		}

		now := s.Now()
		if loan.FirstPaymentDate != nil {
			if err := loan.RetreatSchedule(); err != nil {
				return err
			}
			loan.UpdatedAt = now
		}
		if loan.Status == domain.LoanStatusClosed {
			if err := loan.Reopen(now); err != nil {
				return err
			}
		}
		return s.LoanRepo.Update(ctx, loan)
	})
	monitoring.RecordPayment("delete", err)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// EditPayment corrects a payment's payee and amounts, then re-evaluates
// closure in both directions.
func (s *LoanService) EditPayment(ctx context.Context, paymentID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error) {
	if err := domain.ValidatePaymentAmounts(amount, penalty); err != nil {
		monitoring.RecordPayment("edit", err)
		return nil, nil, err
	}

	existing, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		monitoring.RecordPayment("edit", err)
		return nil, nil, err
	}

	var payment *domain.Payment
	loan, err := s.withLoan(ctx, existing.LoanID, event.TriggerRevision, func(ctx context.Context, loan *domain.Loan) error {
		p, err := s.PaymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		now := s.Now()
		p.Payee = payee
		p.Amount = amount
		p.PenaltyAmount = penalty
		p.UpdatedAt = now
		if err := s.PaymentRepo.Update(ctx, p); err != nil {
			return err
		}
		payment = p

		if loan.Status != domain.LoanStatusReleased && loan.Status != domain.LoanStatusClosed {
			return nil
		}

		settled, err := s.settled(ctx, loan)
		if err != nil {
			return err
		}
		switch {
		case loan.Status == domain.LoanStatusReleased && settled:
			err = loan.Close(now)
		case loan.Status == domain.LoanStatusClosed && !settled:
			err = loan.Reopen(now)
		default:
			return nil
		}
		if err != nil {
			return err
		}
		return s.LoanRepo.Update(ctx, loan)
	})
	monitoring.RecordPayment("edit", err)
	if err != nil {
		return nil, nil, err
	}
	return loan, payment, nil
}

// ReconcileLoan closes a released loan that meets either closure criterion.
// It reports whether the loan was closed by this call.
func (s *LoanService) ReconcileLoan(ctx context.Context, loanID uuid.UUID) (bool, error) {
	return s.reconcileLoan(ctx, loanID, s.Now())
}

func (s *LoanService) reconcileLoan(ctx context.Context, loanID uuid.UUID, now time.Time) (bool, error) {
	var closed bool
	_, err := s.withLoan(ctx, loanID, event.TriggerReconcile, func(ctx context.Context, loan *domain.Loan) error {
		if loan.Status != domain.LoanStatusReleased {
			return nil
		}
		var err error
		closed, err = s.closeIfSettled(ctx, loan, now)
		if err != nil || !closed {
			return err
		}
		return s.LoanRepo.Update(ctx, loan)
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

// ReconcileAll reconciles every released loan as of now with bounded
// parallelism and returns the ids closed by this run. Failures on single
// loans do not stop the sweep; they are reported together at the end.
func (s *LoanService) ReconcileAll(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	now = now.In(s.location)
	start := time.Now()

	loans, err := s.LoanRepo.List(ctx, domain.LoanFilter{Statuses: []domain.LoanStatus{domain.LoanStatusReleased}})
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		closed []uuid.UUID
		failed []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Business.ReconcileConcurrency)
	for _, loan := range loans {
		id := loan.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := s.reconcileLoan(gctx, id, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("reconcile failed", zap.String("loan_id", id.String()), zap.Error(err))
				failed = append(failed, fmt.Errorf("loan %s: %w", id, err))
				return nil
			}
			if ok {
				closed = append(closed, id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(closed, func(i, j int) bool { return closed[i].String() < closed[j].String() })
	monitoring.RecordReconcile(time.Since(start), len(closed), len(failed), len(loans))
	s.logger.Info("reconcile sweep finished",
		zap.Int("visited", len(loans)),
		zap.Int("closed", len(closed)),
		zap.Int("failed", len(failed)),
		zap.Duration("took", time.Since(start)),
	)

	if len(failed) > 0 {
		return closed, fmt.Errorf("%d of %d loans failed to reconcile: %w", len(failed), len(loans), errors.Join(failed...))
	}
	return closed, nil
}

func (s *LoanService) settled(ctx context.Context, loan *domain.Loan) (bool, error) {
	totalPaid, err := s.PaymentRepo.SumByLoan(ctx, loan.ID)
	if err != nil {
		return false, err
	}
	return loan.IsSettled(totalPaid)
}

// closeIfSettled closes a released loan in place when either criterion holds
func (s *LoanService) closeIfSettled(ctx context.Context, loan *domain.Loan, now time.Time) (bool, error) {
	if loan.Status != domain.LoanStatusReleased {
		return false, nil
	}
	settled, err := s.settled(ctx, loan)
	if err != nil || !settled {
		return false, err
	}
	if err := loan.Close(now); err != nil {
		return false, err
	}
	return true, nil
}
