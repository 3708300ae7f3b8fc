package money

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrNonPositive     = errors.New("amount must be positive")
)

// Scale is the number of fractional digits stored for balances and fees.
const Scale = 2

var secondsPerHour = decimal.NewFromInt(3600)

// ParseAmount parses a strictly positive amount with at most two decimals.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return CheckAmount(value)
}

// CheckAmount applies ParseAmount's rules to an already decoded value.
func CheckAmount(value decimal.Decimal) (decimal.Decimal, error) {
	if value.Exponent() < -Scale && !value.Equal(value.Round(Scale)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	return value.Round(Scale), nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// Hours returns the exact length of [start, end) in hours, clamped at zero.
func Hours(start, end time.Time) decimal.Decimal {
	d := end.Sub(start)
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour)
}

// LessonFee is hours(start, end) * hourlyFee rounded to cents. The same value
// is used for the confirm debit and the cancel refund.
func LessonFee(hourlyFee decimal.Decimal, start, end time.Time) decimal.Decimal {
	if hourlyFee.IsNegative() {
		return decimal.Zero
	}
	seconds := end.Sub(start) / time.Second
	if seconds <= 0 {
		return decimal.Zero
	}
	// multiply before dividing so whole-cent results stay exact
	return hourlyFee.Mul(decimal.NewFromInt(int64(seconds))).Div(secondsPerHour).Round(Scale)
}
