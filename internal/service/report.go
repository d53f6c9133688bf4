package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/microloan-engine/internal/domain"
)

// PortfolioReport returns per-loan and total figures for released loans
func (s *LoanService) PortfolioReport(ctx context.Context) (*domain.PortfolioReport, error) {
	loans, err := s.LoanRepo.List(ctx, domain.LoanFilter{Statuses: []domain.LoanStatus{domain.LoanStatusReleased}})
	if err != nil {
		return nil, err
	}

	totals, err := s.PaymentRepo.TotalsByLoan(ctx)
	if err != nil {
		return nil, err
	}

	borrowers := make(map[int64]*domain.Borrower)
	report := &domain.PortfolioReport{
		Rows:           make([]domain.LoanReportRow, 0, len(loans)),
		TotalLoanValue: decimal.Zero,
		TotalPaid:      decimal.Zero,
		InterestEarned: decimal.Zero,
		PendingBalance: decimal.Zero,
	}

	for _, loan := range loans {
		a, err := loan.Amortization()
		if err != nil {
			return nil, err
		}
		borrower, err := s.lookupBorrower(ctx, borrowers, loan.BorrowerID)
		if err != nil {
			return nil, err
		}

		paid := totals[loan.ID]
		row := domain.LoanReportRow{
			LoanID:         loan.ID.String(),
			RefNo:          loan.RefNo,
			BorrowerName:   borrower.FullName(),
			Amount:         loan.Amount,
			TotalInterest:  a.TotalInterest,
			TotalPayable:   a.TotalPayable,
			TotalPaid:      paid,
			PendingBalance: a.PendingBalance(paid),
			InterestEarned: a.InterestEarned(paid),
		}
		report.Rows = append(report.Rows, row)

		report.TotalLoanValue = report.TotalLoanValue.Add(row.TotalPayable)
		report.TotalPaid = report.TotalPaid.Add(row.TotalPaid)
		report.InterestEarned = report.InterestEarned.Add(row.InterestEarned)
		report.PendingBalance = report.PendingBalance.Add(row.PendingBalance)
	}

	return report, nil
}

// MonthlyCollections sums amount plus penalty per calendar month of the
// business timezone for payments created in [from, to).
func (s *LoanService) MonthlyCollections(ctx context.Context, from, to time.Time) ([]domain.MonthlyCollection, error) {
	payments, err := s.PaymentRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var months []domain.MonthlyCollection
	index := make(map[string]int)
	for _, p := range payments {
		month := p.DateCreated.In(s.location).Format("2006-01")
		i, ok := index[month]
		if !ok {
			i = len(months)
			index[month] = i
			months = append(months, domain.MonthlyCollection{Month: month, Total: decimal.Zero})
		}
		months[i].Total = months[i].Total.Add(p.Total())
	}

	if months == nil {
		months = []domain.MonthlyCollection{}
	}
	return months, nil
}

// DashboardStats counts borrowers and active loans and sums what is still receivable
func (s *LoanService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	borrowers, err := s.BorrowerRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	loans, err := s.LoanRepo.List(ctx, domain.LoanFilter{Statuses: []domain.LoanStatus{domain.LoanStatusReleased}})
	if err != nil {
		return nil, err
	}

	totals, err := s.PaymentRepo.TotalsByLoan(ctx)
	if err != nil {
		return nil, err
	}

	receivable := decimal.Zero
	for _, loan := range loans {
		a, err := loan.Amortization()
		if err != nil {
			return nil, err
		}
		receivable = receivable.Add(a.PendingBalance(totals[loan.ID]))
	}

	return &domain.DashboardStats{
		TotalBorrowers:  borrowers,
		ActiveLoans:     len(loans),
		TotalReceivable: receivable,
	}, nil
}
