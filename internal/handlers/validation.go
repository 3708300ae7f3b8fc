package handlers

import (
	"errors"
	"strconv"

	"tabletennis/internal/money"

	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("invalid amount")

func checkAmount(value decimal.Decimal) (decimal.Decimal, error) {
	amount, err := money.CheckAmount(value)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, errInvalidAmount
	}
	return amount, nil
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// page converts page/limit query values to limit/offset, capping limit.
func page(rawPage, rawLimit string, defaultLimit int) (int, int) {
	limit := parseInt(rawLimit, defaultLimit)
	if limit > 200 {
		limit = 200
	}
	p := parseInt(rawPage, 1)
	return limit, (p - 1) * limit
}
