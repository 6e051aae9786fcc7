// Package currency converts between major-unit and minor-unit amounts using
// the payment provider's per-currency rules. All internal money flows in
// integer minor units; decimals appear only at the system boundary.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rules describes which currencies a provider treats as zero-decimal. The
// rule table is provider-specific; construct a custom Rules value when
// integrating a provider with a different table.
type Rules struct {
	zeroDecimal map[string]struct{}
	twoDecimal  map[string]struct{}
}

// NewRules builds a rule table from a zero-decimal currency set and a set of
// currencies forced onto the two-decimal rule regardless of what the
// provider's documentation implies.
func NewRules(zeroDecimal, forcedTwoDecimal []string) Rules {
	r := Rules{
		zeroDecimal: make(map[string]struct{}, len(zeroDecimal)),
		twoDecimal:  make(map[string]struct{}, len(forcedTwoDecimal)),
	}
	for _, c := range zeroDecimal {
		r.zeroDecimal[strings.ToLower(c)] = struct{}{}
	}
	for _, c := range forcedTwoDecimal {
		r.twoDecimal[strings.ToLower(c)] = struct{}{}
	}
	return r
}

// DefaultRules returns Stripe's rule table. HUF, TWD, and UGX are charged
// with two decimals even though parts of the provider documentation list
// them as zero-decimal, so they are pinned to the ×100 rule.
func DefaultRules() Rules {
	return NewRules(
		[]string{
			"bif", "clp", "djf", "gnf", "jpy", "kmf", "krw", "mga",
			"pyg", "rwf", "vnd", "vuv", "xaf", "xof", "xpf",
		},
		[]string{"huf", "twd", "ugx"},
	)
}

func (r Rules) exponent(code string) int32 {
	code = strings.ToLower(code)
	if _, ok := r.twoDecimal[code]; ok {
		return 2
	}
	if _, ok := r.zeroDecimal[code]; ok {
		return 0
	}
	return 2
}

// ToMinorUnits converts a major-unit amount to the provider's minor units.
// The result must be exact: fractional minor units are an error, never
// rounded away.
func (r Rules) ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	minor := amount.Shift(r.exponent(code))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s %s is not a whole number of minor units", amount, code)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts integer minor units back to a major-unit decimal.
func (r Rules) FromMinorUnits(minor int64, code string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-r.exponent(code))
}
