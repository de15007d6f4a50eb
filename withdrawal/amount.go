package withdrawal

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals of ETH.
const Decimals = 18

// ParseAmount converts a decimal ETH amount to wei. Amounts that are not
// positive, do not parse, or have more than 18 decimal places are rejected
// with ErrInvalidAmount.
func ParseAmount(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return nil, ErrInvalidAmount
	}

	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, ErrInvalidAmount
	}
	return wei.BigInt(), nil
}

// FormatAmount converts wei to a decimal ETH amount without trailing zeros.
func FormatAmount(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}
