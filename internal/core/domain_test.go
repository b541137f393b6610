package core

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func testCategory(t *testing.T, typ TransactionType) Category {
	t.Helper()
	c, err := NewCategory("Alimentação", "🍔", "#FF5733", typ, 0)
	if err != nil {
		t.Fatalf("build category: %v", err)
	}
	return c
}

func TestNewUser(t *testing.T) {
	cases := []struct {
		name    string
		phone   string
		display string
		err     error
	}{
		{"valid", "5511999998888", "Maria", nil},
		{"phone too short", "123456789", "Maria", ErrInvalidPhone},
		{"phone too long", "1234567890123456", "Maria", ErrInvalidPhone},
		{"phone with suffix left in", "5511999998888@s.whatsapp.net", "Maria", ErrInvalidPhone},
		{"name too short", "5511999998888", "M", ErrNameTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := NewUser(tc.phone, tc.display, testNow)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if err == nil && u.Status != StatusNew {
				t.Fatalf("new user should be %s, got %s", StatusNew, u.Status)
			}
		})
	}
}

func TestWithGoalActivatesNewUser(t *testing.T) {
	u, err := NewUser("5511999998888", "Maria", testNow)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if u.CanReceiveAlerts() {
		t.Fatal("new user without goal should not receive alerts")
	}

	active, err := u.WithGoal(BRL(250000))
	if err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if active.Status != StatusActive {
		t.Fatalf("expected %s after first goal, got %s", StatusActive, active.Status)
	}
	if !active.CanReceiveAlerts() {
		t.Fatal("active user with goal should receive alerts")
	}
	// The original value is untouched.
	if u.Status != StatusNew || u.MonthlyGoal != nil {
		t.Fatal("WithGoal must not mutate the receiver")
	}

	// Already-active users stay active; inactive users stay inactive.
	inactive := active
	inactive.Status = StatusInactive
	still, err := inactive.WithGoal(BRL(100000))
	if err != nil {
		t.Fatalf("set goal on inactive: %v", err)
	}
	if still.Status != StatusInactive {
		t.Fatalf("goal must not reactivate an inactive user, got %s", still.Status)
	}
}

func TestWithGoalRejectsNonPositive(t *testing.T) {
	u, _ := NewUser("5511999998888", "Maria", testNow)
	if _, err := u.WithGoal(Money{Cents: 0, Currency: DefaultCurrency}); !errors.Is(err, ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
}

func TestNewCategory(t *testing.T) {
	cases := []struct {
		name  string
		cname string
		color string
		typ   TransactionType
		err   error
	}{
		{"valid", "Transporte", "#00FF00", TypeExpense, nil},
		{"name too short", "X", "#00FF00", TypeExpense, ErrNameTooShort},
		{"bad color", "Transporte", "green", TypeExpense, ErrInvalidColor},
		{"short hex", "Transporte", "#0F0", TypeExpense, ErrInvalidColor},
		{"bad type", "Transporte", "#00FF00", TransactionType("other"), ErrInvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCategory(tc.cname, "", tc.color, tc.typ, 0); !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestNewTransaction(t *testing.T) {
	expenseCat := testCategory(t, TypeExpense)
	incomeCat := testCategory(t, TypeIncome)

	cases := []struct {
		name string
		desc string
		amt  Money
		typ  TransactionType
		cat  Category
		err  error
	}{
		{"valid", "mercado", BRL(5000), TypeExpense, expenseCat, nil},
		{"description too short", "ab", BRL(5000), TypeExpense, expenseCat, ErrDescriptionTooShort},
		{"description only spaces", "  a  ", BRL(5000), TypeExpense, expenseCat, ErrDescriptionTooShort},
		{"zero amount", "mercado", Money{Currency: DefaultCurrency}, TypeExpense, expenseCat, ErrInvalidAmount},
		{"category type mismatch", "mercado", BRL(5000), TypeExpense, incomeCat, ErrCategoryTypeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTransaction(1, tc.desc, tc.amt, tc.typ, tc.cat, false, testNow)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}

	if _, err := NewTransaction(0, "mercado", BRL(5000), TypeExpense, expenseCat, false, testNow); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in  string
		out TransactionType
		ok  bool
	}{
		{"expense", TypeExpense, true},
		{"gasto", TypeExpense, true},
		{"income", TypeIncome, true},
		{"receita", TypeIncome, true},
		{" Expense ", TypeExpense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.out) {
			t.Fatalf("%q: expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	start, end := ResolvePeriod(PeriodCurrentMonth, now)
	if start.Day() != 1 || start.Month() != time.March || !end.Equal(now) {
		t.Fatalf("current_month: got %v..%v", start, end)
	}

	start, end = ResolvePeriod(PeriodLastMonth, now)
	if start.Month() != time.February || start.Day() != 1 {
		t.Fatalf("last_month start: got %v", start)
	}
	if !end.Before(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last_month must end before March 1st, got %v", end)
	}

	start, end = ResolvePeriod(PeriodWeek, now)
	if !start.Equal(now.AddDate(0, 0, -7)) || !end.Equal(now) {
		t.Fatalf("week: got %v..%v", start, end)
	}

	start, _ = ResolvePeriod(PeriodYear, now)
	if start.Month() != time.January || start.Day() != 1 || start.Year() != 2025 {
		t.Fatalf("year start: got %v", start)
	}

	// Unknown tags fall back to the current month.
	start, _ = ResolvePeriod("fortnight", now)
	if start.Day() != 1 || start.Month() != time.March {
		t.Fatalf("unknown period should default to current month, got %v", start)
	}
}
