// Package core holds the financial domain model: money, categories,
// transactions and users. Constructors validate their own invariants and
// refuse to build invalid values; callers never get a half-valid entity.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultCurrency is the currency every amount defaults to.
const DefaultCurrency = "BRL"

// Money is an immutable non-negative amount in integer cents tagged with a
// currency code. Use cents for arithmetic; floats only at display time.
type Money struct {
	Cents    int64
	Currency string
}

// NewMoney builds a Money value, rejecting negative amounts.
func NewMoney(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Cents: cents, Currency: currency}, nil
}

// BRL builds a Money value in the default currency. It panics on negative
// cents; use NewMoney when the amount comes from outside the process.
func BRL(cents int64) Money {
	m, err := NewMoney(cents, DefaultCurrency)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place. It accepts both dot (12.34) and comma (12,34)
// separators. Returns ErrInvalidAmount for negative, zero or malformed input.
func ParseMoney(s string) (Money, error) {
	cents, err := parseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents, Currency: DefaultCurrency}, nil
}

func parseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// FirstAmount scans free text for the first decimal number and parses it as
// Money. Used by first-contact handling to pick a monthly goal out of
// messages like "minha meta é 2500 reais".
func FirstAmount(text string) (Money, bool) {
	start := -1
	for i, r := range text {
		if unicode.IsDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return Money{}, false
	}
	end := start
	seenSep := false
	for end < len(text) {
		c := text[end]
		switch {
		case c >= '0' && c <= '9':
			end++
		case (c == '.' || c == ',') && !seenSep && end+1 < len(text) && text[end+1] >= '0' && text[end+1] <= '9':
			seenSep = true
			end++
		default:
			goto done
		}
	}
done:
	m, err := ParseMoney(text[start:end])
	if err != nil {
		return Money{}, false
	}
	return m, true
}

// Add returns the sum of two amounts, failing across currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Sub returns the difference, failing across currencies or when the result
// would be negative (Money is non-negative by construction).
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.Cents > m.Cents {
		return Money{}, ErrNegativeAmount
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// Percentage scales the amount proportionally, rounding to the nearest cent.
func (m Money) Percentage(percent float64) Money {
	cents := int64(float64(m.Cents)*percent/100 + 0.5)
	return Money{Cents: cents, Currency: m.Currency}
}

// IsZero reports whether the amount is zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Format renders the amount for chat replies, e.g. "R$ 1234.56".
func (m Money) Format() string {
	return FormatCents(m.Cents)
}

// FormatCents renders signed cents the same way Money.Format does. Balances
// can be negative even though Money itself cannot.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d.%02d", sign, cents/100, cents%100)
}
