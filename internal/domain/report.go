package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionItem is one released loan as seen by collectors
type CollectionItem struct {
	LoanID        string          `json:"loan_id"`
	RefNo         string          `json:"ref_no"`
	BorrowerName  string          `json:"borrower_name"`
	IDNo          string          `json:"id_no"`
	ReleaseDate   *time.Time      `json:"release_date,omitempty"`
	NextPayment   *time.Time      `json:"next_payment,omitempty"`
	MaturityDate  *time.Time      `json:"maturity_date,omitempty"`
	DaysLeft      string          `json:"days_left"`
	RemainingDays int             `json:"remaining_days"`
	DailyPayment  decimal.Decimal `json:"daily_payment"`
	Label         DueLabel        `json:"label"`
}

// CollectionFilter narrows the collections list; zero values match everything.
type CollectionFilter struct {
	Label  DueLabel
	Search string
}

// LoanReportRow carries per-loan portfolio figures
type LoanReportRow struct {
	LoanID         string          `json:"loan_id"`
	RefNo          string          `json:"ref_no"`
	BorrowerName   string          `json:"borrower_name"`
	Amount         decimal.Decimal `json:"amount"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalPayable   decimal.Decimal `json:"total_payable"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	InterestEarned decimal.Decimal `json:"interest_earned"`
}

// PortfolioReport aggregates the rows of every released loan
type PortfolioReport struct {
	Rows           []LoanReportRow `json:"rows"`
	TotalLoanValue decimal.Decimal `json:"total_loan_value"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	InterestEarned decimal.Decimal `json:"interest_earned"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
}

// MonthlyCollection is the amount plus penalty collected in one YYYY-MM month
type MonthlyCollection struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// DashboardStats are the headline counters
type DashboardStats struct {
	TotalBorrowers  int             `json:"total_borrowers"`
	ActiveLoans     int             `json:"active_loans"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
}
