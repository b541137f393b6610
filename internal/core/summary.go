package core

import "time"

// Balance/report query periods. Anything unrecognized falls back to the
// current month.
const (
	PeriodCurrentMonth = "current_month"
	PeriodLastMonth    = "last_month"
	PeriodWeek         = "week"
	PeriodYear         = "year"
)

// ResolvePeriod converts a period tag into a concrete [start, end] range
// relative to now. last_month covers the full prior calendar month; every
// other period ends at now.
func ResolvePeriod(period string, now time.Time) (start, end time.Time) {
	switch period {
	case PeriodLastMonth:
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
		end = now
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end = now
	default: // PeriodCurrentMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	}
	return start, end
}

// CategorySummary is one category's aggregate inside a balance. Percentage is
// the group's share of the total for its own type (expense total for expense
// groups, income total for income groups).
type CategorySummary struct {
	Category   string
	Type       TransactionType
	TotalCents int64
	Percentage float64
}

// BalanceSummary is the outcome of a balance query over a period.
type BalanceSummary struct {
	IncomeCents  int64
	ExpenseCents int64
	BalanceCents int64
	GoalStatus   string
	ByCategory   []CategorySummary
}
