package domain

import (
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"
)

// InitializeSchedule starts the repayment schedule on release. The first
// payment falls on the calendar day after release.
func (l *Loan) InitializeSchedule(releaseDate time.Time) {
	released := releaseDate
	first := utils.AddDays(utils.StartOfDay(releaseDate), 1)
	next := first

	l.DateReleased = &released
	l.FirstPaymentDate = &first
	l.NextPaymentDate = &next
	l.PaidDays = 0
}

// ResetSchedule clears every schedule field
func (l *Loan) ResetSchedule() {
	l.DateReleased = nil
	l.FirstPaymentDate = nil
	l.NextPaymentDate = nil
	l.PaidDays = 0
}

// AdvanceSchedule records one paid day regardless of the amount paid.
func (l *Loan) AdvanceSchedule() error {
	if l.FirstPaymentDate == nil {
		return customError.WrapScheduleNotInitialized(l.ID.String())
	}
	if l.PaidDays < l.TotalDays() {
		l.PaidDays++
	}
	l.syncNextPaymentDate()
	return nil
}

// RetreatSchedule undoes one AdvanceSchedule
func (l *Loan) RetreatSchedule() error {
	if l.FirstPaymentDate == nil {
		return customError.WrapScheduleNotInitialized(l.ID.String())
	}
	if l.PaidDays > 0 {
		l.PaidDays--
	}
	l.syncNextPaymentDate()
	return nil
}

func (l *Loan) syncNextPaymentDate() {
	next := utils.AddDays(*l.FirstPaymentDate, l.PaidDays)
	l.NextPaymentDate = &next
}

// RemainingDays is the number of unpaid schedule days
func (l *Loan) RemainingDays() int {
	remaining := l.TotalDays() - l.PaidDays
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MaturityDate is the release day plus the full schedule length
func (l *Loan) MaturityDate() *time.Time {
	if l.DateReleased == nil {
		return nil
	}
	due := utils.AddDays(utils.StartOfDay(*l.DateReleased), l.TotalDays())
	return &due
}

// IsSettled reports whether either closure criterion holds: every schedule
// day has been paid, or the collected amount covers the payable.
func (l *Loan) IsSettled(totalPaid decimal.Decimal) (bool, error) {
	if l.PaidDays >= l.TotalDays() {
		return true, nil
	}
	a, err := l.Amortization()
	if err != nil {
		return false, err
	}
	return totalPaid.GreaterThanOrEqual(a.TotalPayable), nil
}

// ScheduleSummary is the read model of a loan's repayment progress
type ScheduleSummary struct {
	LoanID           string          `json:"loan_id"`
	RefNo            string          `json:"ref_no"`
	BorrowerName     string          `json:"borrower_name,omitempty"`
	Status           LoanStatus      `json:"status"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	TotalPayable     decimal.Decimal `json:"total_payable"`
	DailyPayment     decimal.Decimal `json:"daily_payment"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	FirstPaymentDate *time.Time      `json:"first_payment_date,omitempty"`
	NextPaymentDate  *time.Time      `json:"next_payment_date,omitempty"`
	MaturityDate     *time.Time      `json:"maturity_date,omitempty"`
	PaidDays         int             `json:"paid_days"`
	TotalDays        int             `json:"total_days"`
	RemainingDays    int             `json:"remaining_days"`
}

// Summarize builds the summary from the loan and its collected total
func (l *Loan) Summarize(totalPaid decimal.Decimal) (*ScheduleSummary, error) {
	a, err := l.Amortization()
	if err != nil {
		return nil, err
	}
	return &ScheduleSummary{
		LoanID:           l.ID.String(),
		RefNo:            l.RefNo,
		Status:           l.Status,
		TotalInterest:    a.TotalInterest,
		TotalPayable:     a.TotalPayable,
		DailyPayment:     a.DailyPayment,
		TotalPaid:        totalPaid,
		PendingBalance:   a.PendingBalance(totalPaid),
		FirstPaymentDate: l.FirstPaymentDate,
		NextPaymentDate:  l.NextPaymentDate,
		MaturityDate:     l.MaturityDate(),
		PaidDays:         l.PaidDays,
		TotalDays:        a.TotalDays,
		RemainingDays:    l.RemainingDays(),
	}, nil
}
