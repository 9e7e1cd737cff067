// Package money holds currency amounts as integer cents.
//
// Receipt arithmetic is done on cents so repeated recomputation (rate changes,
// item edits) never drifts; rates are applied through shopspring/decimal and
// rounded half away from zero to the cent.
package money

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units.
type Cents int64

func FromFloat(f float64) Cents {
	return Cents(decimal.NewFromFloat(f).Shift(2).Round(0).IntPart())
}

func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

func (c Cents) Float() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String renders two fixed decimals, e.g. "20.00".
func (c Cents) String() string { return c.Decimal().StringFixed(2) }

// Mul multiplies by an integer quantity.
func (c Cents) Mul(q int) Cents { return c * Cents(q) }

// MulRate applies a fractional rate (0.086 for 8.6%) and rounds to the cent.
func (c Cents) MulRate(rate float64) Cents {
	return FromDecimal(c.Decimal().Mul(decimal.NewFromFloat(rate)))
}

// Div splits c by n and rounds to the cent. n <= 0 yields 0.
func (c Cents) Div(n int) Cents {
	if n <= 0 {
		return 0
	}
	return FromDecimal(c.Decimal().Div(decimal.NewFromInt(int64(n))))
}

// Rate returns c/base as a fraction rounded to 6 places, or 0 if base is 0.
func (c Cents) Rate(base Cents) float64 {
	if base == 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(int64(c)).Div(decimal.NewFromInt(int64(base))).Round(6).Float64()
	return f
}

func Sum(cs ...Cents) Cents {
	var t Cents
	for _, c := range cs {
		t += c
	}
	return t
}

// MarshalJSON writes a JSON number with exactly two decimals.
func (c Cents) MarshalJSON() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalJSON accepts numbers and strings ("$10.00"). Unparseable input is 0.
func (c *Cents) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			*c = 0
			return nil
		}
		*c, _ = Parse(s)
		return nil
	}
	*c, _ = Parse(string(b))
	return nil
}

// Parse reads a price leniently: currency symbols, spaces and thousands
// separators are ignored. ok is false when nothing numeric remains, and the
// returned amount is then 0.
func Parse(s string) (Cents, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	return FromDecimal(d), true
}

// ParseDecimal is Parse without the rounding to cents.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	neg := strings.HasPrefix(s, "-") || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			// thousands separator
		}
	}
	clean := b.String()
	if clean == "" || clean == "." {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// ParseQuantity reads a positive integer quantity. Anything else is 1.
func ParseQuantity(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "x"))
	s = strings.TrimPrefix(s, "x")
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, true
	}
	if d, err := decimal.NewFromString(s); err == nil && d.IsPositive() && d.Equal(d.Truncate(0)) {
		return int(d.IntPart()), true
	}
	return 1, false
}
