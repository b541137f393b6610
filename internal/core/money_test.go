package core

import (
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
			if got.Currency != DefaultCurrency {
				t.Fatalf("%q expected currency %s, got %s", tc.in, DefaultCurrency, got.Currency)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestNewMoneyRejectsNegative(t *testing.T) {
	if _, err := NewMoney(-1, DefaultCurrency); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	m, err := NewMoney(0, "")
	if err != nil {
		t.Fatalf("zero should be valid: %v", err)
	}
	if m.Currency != DefaultCurrency {
		t.Fatalf("expected default currency, got %s", m.Currency)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := BRL(500)
	b := BRL(150)

	sum, err := a.Add(b)
	if err != nil || sum.Cents != 650 {
		t.Fatalf("add: got %d (err=%v)", sum.Cents, err)
	}

	diff, err := a.Sub(b)
	if err != nil || diff.Cents != 350 {
		t.Fatalf("sub: got %d (err=%v)", diff.Cents, err)
	}

	if _, err := b.Sub(a); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("sub below zero: expected ErrNegativeAmount, got %v", err)
	}

	usd := Money{Cents: 100, Currency: "USD"}
	if _, err := a.Add(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("add across currencies: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := a.Sub(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("sub across currencies: expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestMoneyPercentage(t *testing.T) {
	cases := []struct {
		cents   int64
		percent float64
		out     int64
	}{
		{10000, 50, 5000},
		{10000, 100, 10000},
		{999, 10, 100}, // rounds to nearest cent
		{10000, 0, 0},
	}
	for _, tc := range cases {
		got := BRL(tc.cents).Percentage(tc.percent)
		if got.Cents != tc.out {
			t.Fatalf("%d @ %.0f%%: expected %d, got %d", tc.cents, tc.percent, tc.out, got.Cents)
		}
	}
}

func TestFirstAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"minha meta é 2500", 250000, true},
		{"minha meta é 2500,50 reais", 250050, true},
		{"gastei 50.25 no mercado", 5025, true},
		{"quero economizar", 0, false},
		{"meta 0", 0, false},
	}
	for _, tc := range cases {
		got, ok := FirstAmount(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if ok && got.Cents != tc.cents {
			t.Fatalf("%q: expected %d cents, got %d", tc.in, tc.cents, got.Cents)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{250000, "R$ 2500.00"},
		{5025, "R$ 50.25"},
		{5, "R$ 0.05"},
		{-1234, "-R$ 12.34"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.out {
			t.Fatalf("%d: expected %q, got %q", tc.cents, tc.out, got)
		}
	}
}
