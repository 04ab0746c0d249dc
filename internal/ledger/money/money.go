// Package money validates the amounts and asset codes carried by ledger commands.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxScale is the finest precision accepted for an amount (satoshi-level).
const MaxScale = 8

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidAsset  = errors.New("invalid asset")
)

// Parse reads a decimal string and validates it as a positive amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount requires a strictly positive amount with at most MaxScale decimals.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, d.String())
	}
	if !d.Equal(d.Truncate(MaxScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d.String(), MaxScale)
	}
	return nil
}

// NormalizeAsset upper-cases an asset code and checks it is 2-10 alphanumerics.
func NormalizeAsset(asset string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(asset))
	if len(code) < 2 || len(code) > 10 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
		}
	}
	return code, nil
}
