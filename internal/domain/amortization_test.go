package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name          string
		amount        decimal.Decimal
		rate          decimal.Decimal
		term          int
		totalInterest decimal.Decimal
		totalPayable  decimal.Decimal
		totalDays     int
	}{
		{
			name:          "reference loan",
			amount:        decimal.NewFromInt(10000),
			rate:          decimal.NewFromInt(5),
			term:          6,
			totalInterest: decimal.NewFromInt(3000),
			totalPayable:  decimal.NewFromInt(13000),
			totalDays:     180,
		},
		{
			name:          "zero interest",
			amount:        decimal.NewFromInt(9000),
			rate:          decimal.Zero,
			term:          3,
			totalInterest: decimal.Zero,
			totalPayable:  decimal.NewFromInt(9000),
			totalDays:     90,
		},
		{
			name:          "fractional rate",
			amount:        decimal.NewFromInt(2500),
			rate:          decimal.RequireFromString("2.5"),
			term:          4,
			totalInterest: decimal.NewFromInt(250),
			totalPayable:  decimal.NewFromInt(2750),
			totalDays:     120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Compute(tt.amount, tt.rate, tt.term)
			require.NoError(t, err)

			assert.True(t, a.TotalInterest.Equal(tt.totalInterest), "interest %s", a.TotalInterest)
			assert.True(t, a.TotalPayable.Equal(tt.totalPayable), "payable %s", a.TotalPayable)
			assert.Equal(t, tt.totalDays, a.TotalDays)
			assert.True(t, a.DailyPayment.Equal(tt.totalPayable.Div(decimal.NewFromInt(int64(tt.totalDays)))))
		})
	}
}

func TestCompute_ReferenceDailyPayment(t *testing.T) {
	a, err := Compute(decimal.NewFromInt(10000), decimal.NewFromInt(5), 6)
	require.NoError(t, err)

	assert.Equal(t, "72.22", a.DailyPayment.StringFixed(2))
	assert.True(t, a.DailyPayment.Round(6).Equal(decimal.RequireFromString("72.222222")))
}

func TestCompute_Deterministic(t *testing.T) {
	amount, rate := decimal.RequireFromString("12345.67"), decimal.RequireFromString("3.3")
	first, err := Compute(amount, rate, 7)
	require.NoError(t, err)

	_, _ = Compute(decimal.NewFromInt(1), decimal.NewFromInt(99), 1)

	second, err := Compute(amount, rate, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		rate   decimal.Decimal
		term   int
	}{
		{"zero amount", decimal.Zero, decimal.NewFromInt(5), 6},
		{"negative amount", decimal.NewFromInt(-1), decimal.NewFromInt(5), 6},
		{"zero term", decimal.NewFromInt(100), decimal.NewFromInt(5), 0},
		{"negative rate", decimal.NewFromInt(100), decimal.NewFromInt(-1), 6},
		{"sub-cent amount", decimal.RequireFromString("100.005"), decimal.NewFromInt(5), 6},
		{"rate beyond four places", decimal.NewFromInt(100), decimal.RequireFromString("2.50001"), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.amount, tt.rate, tt.term)
			assert.ErrorIs(t, err, customError.ErrInvalidInput)
		})
	}
}

func TestCompute_AcceptsStoredPrecision(t *testing.T) {
	_, err := Compute(decimal.RequireFromString("100.50"), decimal.RequireFromString("2.1250"), 3)
	assert.NoError(t, err)
}

func TestValidatePaymentAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		penalty string
		wantErr bool
	}{
		{"cents", "72.22", "0", false},
		{"trailing zeros", "72.2200", "1.50", false},
		{"negative amount", "-1", "0", true},
		{"negative penalty", "10", "-0.01", true},
		{"sub-cent amount", "72.225", "0", true},
		{"sub-cent penalty", "10", "0.001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaymentAmounts(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.penalty))
			if tt.wantErr {
				assert.ErrorIs(t, err, customError.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQuoteLoan(t *testing.T) {
	q, err := QuoteLoan(decimal.NewFromInt(10000), decimal.NewFromInt(5), 6)
	require.NoError(t, err)

	assert.Equal(t, "13000", q.TotalPayable.String())
	assert.Equal(t, "2166.67", q.MonthlyPayment.StringFixed(2))
	assert.Equal(t, 6, q.Months)

	_, err = QuoteLoan(decimal.NewFromInt(10000), decimal.NewFromInt(5), 0)
	assert.ErrorIs(t, err, customError.ErrInvalidInput)
}

func TestAmortization_BalanceAndInterestEarned(t *testing.T) {
	a, err := Compute(decimal.NewFromInt(10000), decimal.NewFromInt(5), 6)
	require.NoError(t, err)

	assert.True(t, a.PendingBalance(decimal.NewFromInt(3000)).Equal(decimal.NewFromInt(10000)))
	assert.True(t, a.PendingBalance(decimal.NewFromInt(20000)).IsZero())

	assert.True(t, a.InterestEarned(decimal.Zero).IsZero())
	assert.True(t, a.InterestEarned(decimal.NewFromInt(6500)).Equal(decimal.NewFromInt(1500)))
	assert.True(t, a.InterestEarned(decimal.NewFromInt(26000)).Equal(decimal.NewFromInt(3000)))
}
