package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a raw on-chain integer as a decimal string scaled by 10^decimals.
// The result always carries a fractional part: 3e9 with 9 decimals is "3.0", zero is "0.0".
// A nil amount is treated as zero.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(amount, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseUnits is the inverse of FormatUnits. Fractional digits beyond decimals are truncated.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// SumUnits adds decimal strings produced by FormatUnits. Unparseable values count as zero.
func SumUnits(values ...string) string {
	total := decimal.Zero
	for _, v := range values {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	s := total.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// BigOrZero returns v, or a fresh zero when v is nil.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
