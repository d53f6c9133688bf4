package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the closed set of loan states. The numeric values are the
// legacy storage codes and never cross the external surface.
type LoanStatus int

const (
	LoanStatusPending  LoanStatus = 0
	LoanStatusApproved LoanStatus = 1
	LoanStatusRejected LoanStatus = 2
	LoanStatusReleased LoanStatus = 3
	LoanStatusClosed   LoanStatus = 4
)

var loanStatusNames = map[LoanStatus]string{
	LoanStatusPending:  "pending",
	LoanStatusApproved: "approved",
	LoanStatusRejected: "rejected",
	LoanStatusReleased: "released",
	LoanStatusClosed:   "closed",
}

func (s LoanStatus) String() string {
	if name, ok := loanStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is one of the known states
func (s LoanStatus) Valid() bool {
	_, ok := loanStatusNames[s]
	return ok
}

// ParseLoanStatus accepts a state name only; numeric codes are rejected.
func ParseLoanStatus(name string) (LoanStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for status, n := range loanStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown loan status %q", name)
}

// MarshalText renders the state name for JSON
func (s LoanStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown loan status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name from JSON
func (s *LoanStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseLoanStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LoanPlan is a reusable template of term, interest and penalty rate
type LoanPlan struct {
	ID                 int64           `json:"id" db:"id"`
	Months             int             `json:"months" db:"months"`
	InterestPercentage decimal.Decimal `json:"interest_percentage" db:"interest_percentage"`
	PenaltyRate        decimal.Decimal `json:"penalty_rate" db:"penalty_rate"`
}

// Borrower is owned by the borrower registry; only read here
type Borrower struct {
	ID         int64  `json:"id" db:"id"`
	Firstname  string `json:"firstname" db:"firstname"`
	Middlename string `json:"middlename" db:"middlename"`
	Lastname   string `json:"lastname" db:"lastname"`
	IDNo       string `json:"id_no" db:"id_no"`
	ContactNo  string `json:"contact_no" db:"contact_no"`
	Address    string `json:"address" db:"address"`
}

// FullName joins first and last name for display
func (b *Borrower) FullName() string {
	return strings.TrimSpace(b.Firstname + " " + b.Lastname)
}

// Loan represents a loan entity. Rate and Term are copied from the plan at
// creation and never re-read from it.
type Loan struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	RefNo            string          `json:"ref_no" db:"ref_no"`
	BorrowerID       int64           `json:"borrower_id" db:"borrower_id"`
	PlanID           int64           `json:"plan_id" db:"plan_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Purpose          string          `json:"purpose" db:"purpose"`
	Rate             decimal.Decimal `json:"rate" db:"rate"`
	Term             int             `json:"term" db:"term"`
	Status           LoanStatus      `json:"status" db:"status"`
	DateCreated      time.Time       `json:"date_created" db:"date_created"`
	DateReleased     *time.Time      `json:"date_released,omitempty" db:"date_released"`
	FirstPaymentDate *time.Time      `json:"first_payment_date,omitempty" db:"first_payment_date"`
	NextPaymentDate  *time.Time      `json:"next_payment_date,omitempty" db:"next_payment_date"`
	PaidDays         int             `json:"paid_days" db:"paid_days"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Amortization computes the loan's figures from its frozen rate and term
func (l *Loan) Amortization() (Amortization, error) {
	return Compute(l.Amount, l.Rate, l.Term)
}

// TotalDays is the schedule length in 30-day months
func (l *Loan) TotalDays() int {
	return l.Term * DaysPerMonth
}

// Clone returns a deep copy so callers can keep a pre-mutation snapshot
func (l *Loan) Clone() *Loan {
	c := *l
	c.DateReleased = cloneTime(l.DateReleased)
	c.FirstPaymentDate = cloneTime(l.FirstPaymentDate)
	c.NextPaymentDate = cloneTime(l.NextPaymentDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// InLocation moves every timestamp of the loan into loc. Stores may hand
// back instants in their own zone; schedule dates are calendar days of loc.
func (l *Loan) InLocation(loc *time.Location) *Loan {
	l.DateCreated = l.DateCreated.In(loc)
	l.UpdatedAt = l.UpdatedAt.In(loc)
	for _, t := range []**time.Time{&l.DateReleased, &l.FirstPaymentDate, &l.NextPaymentDate} {
		if *t != nil {
			moved := (*t).In(loc)
			*t = &moved
		}
	}
	return l
}

// CalculatorRequest asks for a quote without recording a loan
type CalculatorRequest struct {
	Principal decimal.Decimal `json:"principal" validate:"decimal_gt=0"`
	Rate      decimal.Decimal `json:"rate" validate:"decimal_gte=0"`
	Months    int             `json:"months" validate:"required,gt=0"`
}

// LoanFilter narrows loan listings
type LoanFilter struct {
	Statuses   []LoanStatus
	BorrowerID *int64
	PlanID     *int64
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	BorrowerID int64           `json:"borrower_id" validate:"required,gt=0"`
	PlanID     int64           `json:"plan_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Purpose    string          `json:"purpose" validate:"max=500"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected released closed"`
}

type UpdatePlanRequest struct {
	Months             int             `json:"months" validate:"required,gt=0"`
	InterestPercentage decimal.Decimal `json:"interest_percentage" validate:"decimal_gte=0"`
	PenaltyRate        decimal.Decimal `json:"penalty_rate" validate:"decimal_gte=0"`
}
