package withdrawal

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	for amount, wei := range map[string]string{
		"0.05":                 "50000000000000000",
		"1":                    "1000000000000000000",
		" 2.5 ":                "2500000000000000000",
		"0.000000000000000001": "1",
		"1e-3":                 "1000000000000000",
	} {
		got, err := ParseAmount(amount)
		require.NoError(t, err, amount)
		require.Equal(t, wei, got.String(), amount)
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, amount := range []string{"", "-1", "0", "0.0", "abc", "1.2.3", "0.0000000000000000001"} {
		_, err := ParseAmount(amount)
		require.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
	require.Equal(t, "Invalid amount", ErrInvalidAmount.Error())
}

func TestAmountRoundTrip(t *testing.T) {
	for _, amount := range []string{"0.05", "1", "123.456789", "0.000000000000000001", "1000000"} {
		wei, err := ParseAmount(amount)
		require.NoError(t, err)

		back := FormatAmount(wei)
		require.True(t, decimal.RequireFromString(amount).Equal(decimal.RequireFromString(back)), "%s -> %s", amount, back)
	}
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0.05", FormatAmount(big.NewInt(50_000_000_000_000_000)))
	require.Equal(t, "0", FormatAmount(nil))
}
