// Package money keeps every monetary value in integer cents and converts to
// decimal amounts only when presenting or parsing user input.
package money

import (
	"fmt"
	"strings"

	gm "github.com/govalues/money"
)

// Currency is the single currency the service reports in.
const Currency = "BRL"

// Cents is an amount in minor units. Positive values are inflows where a sign matters.
type Cents int64

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Amount converts to a presentation amount.
func (c Cents) Amount() gm.Amount {
	a, err := gm.NewAmountFromMinorUnits(Currency, int64(c))
	if err != nil {
		// only reachable on overflow of the decimal coefficient
		return gm.MustNewAmount(Currency, 0, 2)
	}
	return a
}

// String formats as "BRL 12.34".
func (c Cents) String() string { return c.Amount().String() }

// Major returns the decimal string without currency code, e.g. "-12.34".
func (c Cents) Major() string { return c.Amount().Decimal().String() }

// Parse reads a user-entered amount. Both "1234.56" and "1234,56" are accepted.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	a, err := gm.ParseAmount(Currency, s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if a.Scale() > 2 {
		return 0, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	units, ok := a.MinorUnits()
	if !ok {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Cents(units), nil
}

// Sum adds values.
func Sum(vs ...Cents) Cents {
	var t Cents
	for _, v := range vs {
		t += v
	}
	return t
}
