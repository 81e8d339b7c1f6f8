package vault

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation failure reasons, in the order they are checked.
const (
	ReasonRequired      = "amount is required"
	ReasonInvalidFormat = "invalid amount format"
	ReasonNotPositive   = "amount must be greater than 0"
	ReasonTooLarge      = "amount is too large"
)

// ValidationError reports why user-entered amount text was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ParseAmount validates amount text and returns its decimal value.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, &ValidationError{Reason: ReasonRequired}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &ValidationError{Reason: ReasonInvalidFormat}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Reason: ReasonNotPositive}
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, &ValidationError{Reason: ReasonTooLarge}
	}
	return d, nil
}

// ValidateAmount reports whether text is an acceptable deposit/withdraw amount.
func ValidateAmount(text string) error {
	_, err := ParseAmount(text)
	return err
}

// ToBaseUnits scales a decimal amount to integer base units, flooring any
// precision beyond Decimals.
func ToBaseUnits(amount decimal.Decimal) uint64 {
	scaled := amount.Shift(Decimals).Floor()
	if scaled.IsNegative() {
		return 0
	}
	return scaled.BigInt().Uint64()
}

// FromBaseUnits converts integer base units to a decimal amount.
func FromBaseUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals)
}

// FormatAmount renders an amount with exactly Decimals fractional digits.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(Decimals)
}
