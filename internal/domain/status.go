package domain

import (
	"time"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

type edge struct {
	from, to LoanStatus
}

// Edges reachable from outside the engine.
var externalEdges = map[edge]bool{
	{LoanStatusPending, LoanStatusApproved}:  true,
	{LoanStatusPending, LoanStatusRejected}:  true,
	{LoanStatusApproved, LoanStatusReleased}: true,
	{LoanStatusReleased, LoanStatusPending}:  true,
}

// Edges only payment reconciliation may take.
var reconciliationEdges = map[edge]bool{
	{LoanStatusReleased, LoanStatusClosed}: true,
	{LoanStatusClosed, LoanStatusClosed}:   true,
	{LoanStatusClosed, LoanStatusReleased}: true,
}

// CanTransition reports whether from -> to is a legal edge. external limits
// the check to edges callers outside reconciliation may request.
func CanTransition(from, to LoanStatus, external bool) bool {
	e := edge{from, to}
	if externalEdges[e] {
		return true
	}
	return !external && reconciliationEdges[e]
}

// Transition moves the loan to target as requested by an external caller.
// Closed is never a valid external target.
func (l *Loan) Transition(target LoanStatus, now time.Time) error {
	return l.transition(target, now, true)
}

// Close marks a released loan as fully repaid. Closing a closed loan is a no-op.
func (l *Loan) Close(now time.Time) error {
	return l.transition(LoanStatusClosed, now, false)
}

// Reopen returns a closed loan to released after one of its payments is retracted.
func (l *Loan) Reopen(now time.Time) error {
	return l.transition(LoanStatusReleased, now, false)
}

func (l *Loan) transition(target LoanStatus, now time.Time, external bool) error {
	if !target.Valid() || !CanTransition(l.Status, target, external) {
		return customError.WrapInvalidTransition(l.Status.String(), target.String())
	}

	from := l.Status
	switch {
	case from == LoanStatusApproved && target == LoanStatusReleased:
		l.InitializeSchedule(now)
	case from == LoanStatusReleased && target == LoanStatusPending:
		l.ResetSchedule()
	}

	l.Status = target
	if from != target {
		l.UpdatedAt = now
	}
	return nil
}
