package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for every amount.
const MoneyScale = 2

// Money is a fixed-precision monetary amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// NewMoney wraps a decimal, rounding to MoneyScale.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(MoneyScale)}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -MoneyScale)}
}

// ParseMoney parses a decimal string. Amounts with more than two fractional
// digits are rejected instead of rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, NewValidationError("amount", "amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, NewValidationError("amount", fmt.Sprintf("invalid amount %q", s))
	}

	if d.Exponent() < -MoneyScale && !d.Equal(d.Round(MoneyScale)) {
		return Zero, NewValidationError("amount", "amount has more than 2 decimal places")
	}

	return NewMoney(d), nil
}

// MustParseMoney is ParseMoney that panics on error. Intended for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// String renders the canonical two-decimal form, e.g. "70.00".
func (m Money) String() string {
	return m.d.StringFixed(MoneyScale)
}

// Float64 is for metrics only, never for arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Percent returns m / of * 100, rounded to two places. A zero divisor yields zero.
func (m Money) Percent(of Money) decimal.Decimal {
	if of.d.IsZero() {
		return decimal.Zero
	}
	return m.d.Div(of.d).Mul(decimal.NewFromInt(100)).Round(2)
}

// MarshalJSON encodes the amount as a string so clients never see float drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.50. A JSON null decodes as zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Zero
		return nil
	}
	raw := strings.Trim(string(data), `"`)

	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
