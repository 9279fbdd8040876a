// Package pricing computes order amounts from a service price and the laundry
// weight. Services are priced per started 7 kg load.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TierKg is the weight covered by one price unit.
var TierKg = decimal.NewFromInt(7)

// MaxAmount is the largest value a NUMERIC(10,2) money column can hold.
var MaxAmount = decimal.RequireFromString("99999999.99")

var (
	ErrInvalidWeight  = errors.New("weight must be greater than 0")
	ErrInvalidPrice   = errors.New("price must be greater than 0")
	ErrAmountTooLarge = errors.New("amount exceeds 99999999.99")
)

// Tier returns the number of started 7 kg loads in weightKg, or 0 when the
// weight is not positive.
func Tier(weightKg decimal.Decimal) int64 {
	if !weightKg.IsPositive() {
		return 0
	}
	return weightKg.Div(TierKg).Ceil().IntPart()
}

// Amount returns price × Tier(weightKg), rounded to 2 decimal places.
// Amounts above MaxAmount are rejected with ErrAmountTooLarge.
func Amount(price, weightKg decimal.Decimal) (decimal.Decimal, error) {
	if !weightKg.IsPositive() {
		return decimal.Zero, ErrInvalidWeight
	}
	if !price.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	amount := price.Mul(decimal.NewFromInt(Tier(weightKg))).Round(2)
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return amount, nil
}
