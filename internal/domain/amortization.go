package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// DaysPerMonth models a month as a fixed 30-day unit for scheduling.
const DaysPerMonth = 30

// Money and rate precision as stored
const (
	MoneyPlaces = 2
	RatePlaces  = 4
)

var hundred = decimal.NewFromInt(100)

// Amortization holds the flat-interest figures of a loan
type Amortization struct {
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalDays     int             `json:"total_days"`
	DailyPayment  decimal.Decimal `json:"daily_payment"`
}

// Compute applies flat interest once per month over the full term:
// interest = amount * rate/100 * months, payable = amount + interest,
// daily = payable / (months * 30). No rounding is applied here.
func Compute(amount, ratePercent decimal.Decimal, termMonths int) (Amortization, error) {
	if !amount.IsPositive() {
		return Amortization{}, customError.WrapInvalidInput("amount", "must be greater than 0")
	}
	if err := CheckScale("amount", amount, MoneyPlaces); err != nil {
		return Amortization{}, err
	}
	if termMonths <= 0 {
		return Amortization{}, customError.WrapInvalidInput("term", "must be greater than 0")
	}
	if ratePercent.IsNegative() {
		return Amortization{}, customError.WrapInvalidInput("rate", "must not be negative")
	}
	if err := CheckScale("rate", ratePercent, RatePlaces); err != nil {
		return Amortization{}, err
	}

	months := decimal.NewFromInt(int64(termMonths))
	totalInterest := amount.Mul(ratePercent).Mul(months).Div(hundred)
	totalPayable := amount.Add(totalInterest)
	totalDays := termMonths * DaysPerMonth

	return Amortization{
		TotalInterest: totalInterest,
		TotalPayable:  totalPayable,
		TotalDays:     totalDays,
		DailyPayment:  totalPayable.Div(decimal.NewFromInt(int64(totalDays))),
	}, nil
}

// CheckScale rejects values with more decimal places than the store keeps
func CheckScale(field string, d decimal.Decimal, places int32) error {
	if !d.Equal(d.Truncate(places)) {
		return customError.WrapInvalidInput(field, fmt.Sprintf("must have at most %d decimal places", places))
	}
	return nil
}

// LoanQuote is the calculator view of a prospective loan
type LoanQuote struct {
	Amortization
	Months         int             `json:"months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
}

// QuoteLoan computes the figures for a loan that is not recorded anywhere
func QuoteLoan(amount, ratePercent decimal.Decimal, termMonths int) (LoanQuote, error) {
	a, err := Compute(amount, ratePercent, termMonths)
	if err != nil {
		return LoanQuote{}, err
	}
	return LoanQuote{
		Amortization:   a,
		Months:         termMonths,
		MonthlyPayment: a.TotalPayable.Div(decimal.NewFromInt(int64(termMonths))),
	}, nil
}

// PendingBalance is what remains of the payable after totalPaid, floored at zero
func (a Amortization) PendingBalance(totalPaid decimal.Decimal) decimal.Decimal {
	balance := a.TotalPayable.Sub(totalPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// InterestEarned recognises interest in proportion to the share of the payable collected
func (a Amortization) InterestEarned(totalPaid decimal.Decimal) decimal.Decimal {
	if !totalPaid.IsPositive() {
		return decimal.Zero
	}
	ratio := totalPaid.Div(a.TotalPayable)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	return a.TotalInterest.Mul(ratio)
}
