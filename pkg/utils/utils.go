package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartOfDay truncates t to midnight in t's own location.
// time.Truncate works on absolute time and would cut at UTC midnight instead.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves a date by whole calendar days
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DaysBetween returns the number of calendar days from `from` to `to`, compared
// in the location of `from`. Negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	loc := from.Location()
	a := StartOfDay(from)
	b := StartOfDay(to.In(loc))

	// Compare dates as UTC midnights so DST shifts do not produce 23h/25h days.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// FormatDate renders a nullable date as YYYY-MM-DD, or "N/A"
func FormatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

// DaysLeftText renders a day difference the way collectors read it
func DaysLeftText(diff int) string {
	switch {
	case diff > 1:
		return fmt.Sprintf("%d days", diff)
	case diff == 1:
		return "Tomorrow"
	case diff == 0:
		return "Today"
	default:
		return fmt.Sprintf("%d days late", -diff)
	}
}

// GenerateRefNo returns an opaque loan reference, e.g. REF-1718000000000-9F2C41AB
func GenerateRefNo(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("REF-%d-%s", now.UnixMilli(), token)
}

// MinDecimal returns the smaller of a and b
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxDecimal returns the larger of a and b
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
