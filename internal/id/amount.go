package id

import (
	"fmt"
	"math/big"
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/shopspring/decimal"
)

// etherUnits maps a unit symbol to its power-of-ten multiplier of wei.
var etherUnits = map[string]int32{
	"wei":        0,
	"kwei":       3,
	"babbage":    3,
	"femtoether": 3,
	"mwei":       6,
	"lovelace":   6,
	"picoether":  6,
	"gwei":       9,
	"shannon":    9,
	"nanoether":  9,
	"nano":       9,
	"szabo":      12,
	"microether": 12,
	"micro":      12,
	"finney":     15,
	"milliether": 15,
	"milli":      15,
	"ether":      18,
	"kether":     21,
	"grand":      21,
	"einstein":   21,
	"mether":     24,
	"gether":     27,
	"tether":     30,
}

// UnitExponent returns the power of ten for a unit symbol.
func UnitExponent(unit string) (int32, bool) {
	exp, ok := etherUnits[strings.ToLower(strings.TrimSpace(unit))]
	return exp, ok
}

// ParseAmount converts "1 ether", "5 gwei" or a bare base-unit integer into wei.
// A fractional mantissa is accepted only when it resolves to a whole number of
// base units.
func ParseAmount(literal string) (*big.Int, error) {
	clean := strings.TrimSpace(literal)
	if clean == "" {
		return nil, clierr.New(clierr.CodeUsage, "amount is required")
	}
	mantissa, unit, hasUnit := strings.Cut(clean, " ")
	if !hasUnit {
		v, ok := new(big.Int).SetString(clean, 10)
		if !ok || v.Sign() < 0 {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("amount %q must be a non-negative integer", literal))
		}
		return v, nil
	}
	exp, ok := UnitExponent(unit)
	if !ok {
		return nil, clierr.New(clierr.CodeUnrecognizedUnit, fmt.Sprintf("unrecognized unit %q", strings.TrimSpace(unit)))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(mantissa))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid amount %q", literal), err)
	}
	if d.IsNegative() {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("amount %q must be non-negative", literal))
	}
	scaled := d.Shift(exp)
	if !scaled.IsInteger() {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("amount %q is not a whole number of wei", literal))
	}
	return scaled.BigInt(), nil
}

// FormatEther renders a wei amount as a decimal ether string.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}
