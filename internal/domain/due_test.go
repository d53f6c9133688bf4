package domain

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

func TestClassify_Boundaries(t *testing.T) {
	now := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		next     time.Time
		expected DueLabel
		diff     int
	}{
		{"same day", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), DueToday, 0},
		{"next day", time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), DueTomorrow, 1},
		{"yesterday", time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), Overdue, -1},
		{"two days ahead", time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), Upcoming, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newTestLoan(LoanStatusReleased)
			next := tt.next
			loan.NextPaymentDate = &next
			snapshot := loan.Clone()

			label, diff, err := Classify(loan, now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, label)
			assert.Equal(t, tt.diff, diff)
			assert.Equal(t, snapshot, loan)
		})
	}
}

func TestClassify_UsesNowLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 2024-06-10 23:00 UTC is already 2024-06-11 in Jakarta.
	now := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC).In(jakarta)
	next := time.Date(2024, 6, 11, 0, 0, 0, 0, jakarta)

	loan := newTestLoan(LoanStatusReleased)
	loan.NextPaymentDate = &next

	label, _, err := Classify(loan, now)
	require.NoError(t, err)
	assert.Equal(t, DueToday, label)
}

func TestClassify_NoSchedule(t *testing.T) {
	_, _, err := Classify(newTestLoan(LoanStatusApproved), time.Now())
	assert.ErrorIs(t, err, customError.ErrScheduleNotInitialized)
}

func TestDueLabel_PriorityOrder(t *testing.T) {
	labels := []DueLabel{Upcoming, Overdue, DueTomorrow, DueToday}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Priority() < labels[j].Priority() })

	assert.Equal(t, []DueLabel{DueToday, DueTomorrow, Overdue, Upcoming}, labels)
}

func TestParseDueLabel(t *testing.T) {
	l, err := ParseDueLabel("overdue")
	require.NoError(t, err)
	assert.Equal(t, Overdue, l)

	_, err = ParseDueLabel("late")
	assert.Error(t, err)
}
