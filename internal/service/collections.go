package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"
)

// ListCollections lists released loans with their next payment, ordered by
// due label priority and then by next payment date.
func (s *LoanService) ListCollections(ctx context.Context, now time.Time, filter domain.CollectionFilter) ([]domain.CollectionItem, error) {
	loans, err := s.LoanRepo.List(ctx, domain.LoanFilter{Statuses: []domain.LoanStatus{domain.LoanStatusReleased}})
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		s.localize(loan)
	}

	borrowers := make(map[int64]*domain.Borrower)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	items := make([]domain.CollectionItem, 0, len(loans))
	for _, loan := range loans {
		label, diff, err := domain.Classify(loan, now)
		if err != nil {
			return nil, err
		}
		if filter.Label != "" && label != filter.Label {
			continue
		}

		borrower, err := s.lookupBorrower(ctx, borrowers, loan.BorrowerID)
		if err != nil {
			return nil, err
		}
		if search != "" && !matchesSearch(search, loan, borrower) {
			continue
		}

		a, err := loan.Amortization()
		if err != nil {
			return nil, err
		}

		items = append(items, domain.CollectionItem{
			LoanID:        loan.ID.String(),
			RefNo:         loan.RefNo,
			BorrowerName:  borrower.FullName(),
			IDNo:          borrower.IDNo,
			ReleaseDate:   loan.DateReleased,
			NextPayment:   loan.NextPaymentDate,
			MaturityDate:  loan.MaturityDate(),
			DaysLeft:      utils.DaysLeftText(diff),
			RemainingDays: loan.RemainingDays(),
			DailyPayment:  a.DailyPayment.Round(2),
			Label:         label,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Label.Priority(), items[j].Label.Priority()
		if pi != pj {
			return pi < pj
		}
		return items[i].NextPayment.Before(*items[j].NextPayment)
	})
	return items, nil
}

// lookupBorrower memoizes borrower reads for one listing. A missing borrower
// yields an empty record rather than failing the whole list.
func (s *LoanService) lookupBorrower(ctx context.Context, seen map[int64]*domain.Borrower, id int64) (*domain.Borrower, error) {
	if b, ok := seen[id]; ok {
		return b, nil
	}
	b, err := s.BorrowerRepo.GetByID(ctx, id)
	if errors.Is(err, customError.ErrBorrowerNotFound) {
		b, err = &domain.Borrower{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	seen[id] = b
	return b, nil
}

func matchesSearch(search string, loan *domain.Loan, b *domain.Borrower) bool {
	for _, field := range []string{loan.RefNo, b.FullName(), b.IDNo} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
