package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidLoanState       = errors.New("invalid loan state")
	ErrScheduleNotInitialized = errors.New("schedule not initialized")
	ErrNotFound               = errors.New("not found")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
	ErrPlanInUse              = errors.New("loan plan is referenced by a released loan")
	ErrDatabase               = errors.New("database error")
)

// Not-found kinds. Each wraps ErrNotFound so callers can match either.
var (
	ErrLoanNotFound     = fmt.Errorf("loan %w", ErrNotFound)
	ErrPaymentNotFound  = fmt.Errorf("payment %w", ErrNotFound)
	ErrPlanNotFound     = fmt.Errorf("loan plan %w", ErrNotFound)
	ErrBorrowerNotFound = fmt.Errorf("borrower %w", ErrNotFound)
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeInvalidLoanState       = "INVALID_LOAN_STATE"
	ErrCodeScheduleNotInitialized = "SCHEDULE_NOT_INITIALIZED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	ErrCodePlanInUse              = "PLAN_IN_USE"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

func WrapInvalidInput(field, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInput,
		fmt.Sprintf("%s %s", field, reason),
		ErrInvalidInput,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("cannot move loan from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapInvalidLoanState(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanState,
		fmt.Sprintf("Loan %s is %s, payments require a released loan", loanID, status),
		ErrInvalidLoanState,
	)
}

func WrapScheduleNotInitialized(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleNotInitialized,
		fmt.Sprintf("Loan %s has no repayment schedule", loanID),
		ErrScheduleNotInitialized,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapPlanNotFound(planID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan plan %d not found", planID),
		ErrPlanNotFound,
	)
}

func WrapBorrowerNotFound(borrowerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Borrower %d not found", borrowerID),
		ErrBorrowerNotFound,
	)
}

func WrapConcurrencyConflict(resource string, err error) *BusinessError {
	cause := ErrConcurrencyConflict
	if err != nil {
		cause = fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	}
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("%s is being modified concurrently", resource),
		cause,
	)
}

func WrapPlanInUse(planID int64) *BusinessError {
	return NewBusinessError(
		ErrCodePlanInUse,
		fmt.Sprintf("Loan plan %d is already used by released loans", planID),
		ErrPlanInUse,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrDatabase, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// Code returns the business code carried by err, or ErrCodeInternal.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}
