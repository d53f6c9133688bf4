package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// Payment is one repayment recorded against a loan
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	Payee         string          `json:"payee" db:"payee"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount" db:"penalty_amount"`
	DateCreated   time.Time       `json:"date_created" db:"date_created"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Total is the amount plus penalty credited to the loan
func (p *Payment) Total() decimal.Decimal {
	return p.Amount.Add(p.PenaltyAmount)
}

// ValidatePaymentAmounts rejects negative amounts or penalties
func ValidatePaymentAmounts(amount, penalty decimal.Decimal) error {
	if amount.IsNegative() {
		return customError.WrapInvalidInput("amount", "must not be negative")
	}
	if penalty.IsNegative() {
		return customError.WrapInvalidInput("penalty_amount", "must not be negative")
	}
	if err := CheckScale("amount", amount, MoneyPlaces); err != nil {
		return err
	}
	return CheckScale("penalty_amount", penalty, MoneyPlaces)
}

type PaymentRequest struct {
	Payee         string          `json:"payee" validate:"required,max=200"`
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gte=0"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount" validate:"decimal_gte=0"`
}

type PaymentResponse struct {
	Loan    *Loan    `json:"loan"`
	Payment *Payment `json:"payment,omitempty"`
}
