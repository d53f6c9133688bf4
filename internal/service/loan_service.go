package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/event"
	"github.com/segyhp/microloan-engine/internal/lock"
	"github.com/segyhp/microloan-engine/internal/monitoring"
	"github.com/segyhp/microloan-engine/internal/repository"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"
)

// Repositories groups the stores the service reads and writes
type Repositories struct {
	Loans     repository.LoanRepository
	Payments  repository.PaymentRepository
	Plans     repository.PlanRepository
	Borrowers repository.BorrowerRepository
	Tx        repository.Transactor
}

type LoanService struct {
	LoanRepo     repository.LoanRepository
	PaymentRepo  repository.PaymentRepository
	PlanRepo     repository.PlanRepository
	BorrowerRepo repository.BorrowerRepository

	tx        repository.Transactor
	locker    lock.Locker
	summaries cache.SummaryCache
	publisher event.Publisher
	config    *config.Config
	logger    *zap.Logger
	location  *time.Location
	clock     func() time.Time
}

type Option func(*LoanService)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *LoanService) { s.clock = clock }
}

func NewLoanService(
	repos Repositories,
	locker lock.Locker,
	summaries cache.SummaryCache,
	publisher event.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *LoanService {
	s := &LoanService{
		LoanRepo:     repos.Loans,
		PaymentRepo:  repos.Payments,
		PlanRepo:     repos.Plans,
		BorrowerRepo: repos.Borrowers,
		tx:           repos.Tx,
		locker:       locker,
		summaries:    summaries,
		publisher:    publisher,
		config:       cfg,
		logger:       logger.With(zap.String("component", "LoanService")),
		location:     cfg.Location(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the current time in the business timezone
func (s *LoanService) Now() time.Time {
	return s.clock().In(s.location)
}

// CreateLoan records a pending application, snapshotting the plan's rate and term
func (s *LoanService) CreateLoan(ctx context.Context, req domain.CreateLoanRequest) (*domain.Loan, error) {
	if _, err := s.BorrowerRepo.GetByID(ctx, req.BorrowerID); err != nil {
		return nil, err
	}

	plan, err := s.PlanRepo.GetByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	if _, err := domain.Compute(req.Amount, plan.InterestPercentage, plan.Months); err != nil {
		return nil, err
	}

	now := s.Now()
	loan := &domain.Loan{
		ID:          uuid.New(),
		RefNo:       utils.GenerateRefNo(now),
		BorrowerID:  req.BorrowerID,
		PlanID:      plan.ID,
		Amount:      req.Amount,
		Purpose:     req.Purpose,
		Rate:        plan.InterestPercentage,
		Term:        plan.Months,
		Status:      domain.LoanStatusPending,
		DateCreated: now,
		UpdatedAt:   now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("ref_no", loan.RefNo),
		zap.String("amount", loan.Amount.String()),
	)
	return loan, nil
}

// TransitionStatus applies an externally requested status change
func (s *LoanService) TransitionStatus(ctx context.Context, loanID uuid.UUID, target domain.LoanStatus) (*domain.Loan, error) {
	return s.withLoan(ctx, loanID, event.TriggerTransition, func(ctx context.Context, loan *domain.Loan) error {
		if err := loan.Transition(target, s.Now()); err != nil {
			return err
		}
		return s.LoanRepo.Update(ctx, loan)
	})
}

func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return s.localize(loan), nil
}

// localize moves loans read from a store into the business location so
// schedule dates fall on the right calendar day.
func (s *LoanService) localize(loan *domain.Loan) *domain.Loan {
	return loan.InLocation(s.location)
}

// ListPayments returns a loan's payments, oldest first
func (s *LoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.LoanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}
	return payments, nil
}

// GetScheduleSummary returns the repayment progress of a loan, served from
// the summary cache when present.
func (s *LoanService) GetScheduleSummary(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleSummary, error) {
	if cached, ok, err := s.summaries.Get(ctx, loanID.String()); err != nil {
		s.logger.Warn("summary cache read failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	// Filling the cache under the loan lock keeps a concurrent mutation from
	// invalidating before a stale summary lands.
	unlock, err := s.locker.Lock(ctx, lock.LoanKey(loanID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var summary *domain.ScheduleSummary
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.LoanRepo.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		s.localize(loan)

		totalPaid, err := s.PaymentRepo.SumByLoan(ctx, loanID)
		if err != nil {
			return err
		}

		summary, err = loan.Summarize(totalPaid)
		if err != nil {
			return err
		}

		borrower, err := s.BorrowerRepo.GetByID(ctx, loan.BorrowerID)
		switch {
		case err == nil:
			summary.BorrowerName = borrower.FullName()
		case !errors.Is(err, customError.ErrBorrowerNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.summaries.Set(ctx, summary); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
	return summary, nil
}

// ClassifyDue labels the loan's next payment relative to now
func (s *LoanService) ClassifyDue(ctx context.Context, loanID uuid.UUID, now time.Time) (domain.DueLabel, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return "", err
	}
	label, _, err := domain.Classify(s.localize(loan), now)
	return label, err
}

// UpdatePlan edits a plan unless a released or closed loan references it
func (s *LoanService) UpdatePlan(ctx context.Context, planID int64, req domain.UpdatePlanRequest) (*domain.LoanPlan, error) {
	if _, err := domain.Compute(decimal.NewFromInt(1), req.InterestPercentage, req.Months); err != nil {
		return nil, err
	}

	var updated *domain.LoanPlan
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		plan, err := s.PlanRepo.GetByID(ctx, planID)
		if err != nil {
			return err
		}

		inUse, err := s.LoanRepo.CountByPlan(ctx, planID,
			[]domain.LoanStatus{domain.LoanStatusReleased, domain.LoanStatusClosed})
		if err != nil {
			return err
		}
		if inUse > 0 {
			return customError.WrapPlanInUse(planID)
		}

		plan.Months = req.Months
		plan.InterestPercentage = req.InterestPercentage
		plan.PenaltyRate = req.PenaltyRate
		if err := s.PlanRepo.Update(ctx, plan); err != nil {
			return err
		}
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// withLoan serializes fn against every other mutation of the loan: it holds
// the loan lock and runs fn on a row-locked copy inside one transaction.
// After commit the cached summary is dropped and status changes are announced.
func (s *LoanService) withLoan(
	ctx context.Context,
	loanID uuid.UUID,
	trigger event.Trigger,
	fn func(ctx context.Context, loan *domain.Loan) error,
) (*domain.Loan, error) {
	unlock, err := s.locker.Lock(ctx, lock.LoanKey(loanID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		before domain.LoanStatus
		result *domain.Loan
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.LoanRepo.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		s.localize(loan)
		before = loan.Status
		if err := fn(ctx, loan); err != nil {
			return err
		}
		result = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, result, before, trigger)
	return result, nil
}

func (s *LoanService) afterCommit(ctx context.Context, loan *domain.Loan, before domain.LoanStatus, trigger event.Trigger) {
	if err := s.summaries.Invalidate(ctx, loan.ID.String()); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.String("loan_id", loan.ID.String()), zap.Error(err))
	}

	if loan.Status == before {
		return
	}

	monitoring.RecordTransition(before.String(), loan.Status.String())
	switch {
	case loan.Status == domain.LoanStatusClosed:
		monitoring.RecordClosed(string(trigger))
	case before == domain.LoanStatusClosed && loan.Status == domain.LoanStatusReleased:
		monitoring.RecordReopened()
	}

	s.logger.Info("loan status changed",
		zap.String("loan_id", loan.ID.String()),
		zap.Stringer("from", before),
		zap.Stringer("to", loan.Status),
		zap.String("trigger", string(trigger)),
	)

	evt := event.NewLoanStatusChanged(loan, before, trigger, s.Now())
	if err := s.publisher.PublishLoanStatusChanged(ctx, evt); err != nil {
		s.logger.Warn("failed to publish status change", zap.String("loan_id", loan.ID.String()), zap.Error(err))
	}
}
