package domain

import (
	"fmt"
	"time"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"
)

// DueLabel classifies a loan's next payment against today
type DueLabel string

const (
	DueToday    DueLabel = "due_today"
	DueTomorrow DueLabel = "due_tomorrow"
	Overdue     DueLabel = "overdue"
	Upcoming    DueLabel = "upcoming"
)

var duePriority = map[DueLabel]int{
	DueToday:    0,
	DueTomorrow: 1,
	Overdue:     2,
	Upcoming:    3,
}

// Priority orders labels for collections work; lower comes first.
func (d DueLabel) Priority() int {
	if p, ok := duePriority[d]; ok {
		return p
	}
	return len(duePriority)
}

// ParseDueLabel accepts the label names used on the wire
func ParseDueLabel(s string) (DueLabel, error) {
	label := DueLabel(s)
	if _, ok := duePriority[label]; !ok {
		return "", fmt.Errorf("unknown due label %q", s)
	}
	return label, nil
}

// Classify compares the next payment date to now at day granularity, in now's location.
// The loan is not modified.
func Classify(loan *Loan, now time.Time) (DueLabel, int, error) {
	if loan.NextPaymentDate == nil {
		return "", 0, customError.WrapScheduleNotInitialized(loan.ID.String())
	}

	diff := utils.DaysBetween(now, *loan.NextPaymentDate)
	switch {
	case diff == 0:
		return DueToday, diff, nil
	case diff == 1:
		return DueTomorrow, diff, nil
	case diff < 0:
		return Overdue, diff, nil
	default:
		return Upcoming, diff, nil
	}
}
