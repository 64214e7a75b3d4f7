package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point scale used by both traded tokens and
// the exchange contract.
const TokenDecimals = 18

var weiPerToken = decimal.New(1, TokenDecimals)

// ToWei converts a decimal token amount into its 18-decimal fixed-point
// integer representation.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	if amount.Exponent() < -TokenDecimals {
		return nil, fmt.Errorf("amount has more than %d fractional digits: %s", TokenDecimals, amount)
	}

	scaled := amount.Mul(weiPerToken)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount has more than %d fractional digits: %s", TokenDecimals, amount)
	}

	return scaled.BigInt(), nil
}

// ParseWei converts a decimal string into fixed-point representation.
func ParseWei(amount string) (*big.Int, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return ToWei(parsed)
}

// FromWei converts a fixed-point integer into a decimal token amount.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -TokenDecimals)
}

// FormatWei renders a fixed-point integer as a decimal string.
func FormatWei(wei *big.Int) string {
	return FromWei(wei).String()
}
