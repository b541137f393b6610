package bot

import (
	"context"
	"fmt"
	"sort"

	"poupapig/internal/core"
)

// getBalance aggregates a user's transactions over the requested period.
func (p *Processor) getBalance(ctx context.Context, user core.User, params map[string]any) (string, error) {
	period := paramString(params, "periodo")
	summary, err := p.balanceSummary(ctx, user, period)
	if err != nil {
		return "", err
	}
	return formatBalance(summary), nil
}

func (p *Processor) balanceSummary(ctx context.Context, user core.User, period string) (core.BalanceSummary, error) {
	now := p.now()
	start, end := core.ResolvePeriod(period, now)

	txs, err := p.transactions.TransactionsByDateRange(ctx, user.ID, start, end)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("load transactions: %w", err)
	}

	summary := core.BalanceSummary{ByCategory: groupByCategory(txs)}
	for _, tx := range txs {
		if tx.IsExpense() {
			summary.ExpenseCents += tx.Amount.Cents
		} else {
			summary.IncomeCents += tx.Amount.Cents
		}
	}
	summary.BalanceCents = summary.IncomeCents - summary.ExpenseCents

	// The goal is a current-month ceiling; last month's spend is history and
	// gets no banding.
	if user.MonthlyGoal != nil && period != core.PeriodLastMonth {
		summary.GoalStatus = goalStatus(summary.ExpenseCents, user.MonthlyGoal.Cents)
	}
	return summary, nil
}

// groupByCategory aggregates per-category totals. Each group's percentage is
// its share of the total for its own type, and groups sort descending by
// total.
func groupByCategory(txs []core.Transaction) []core.CategorySummary {
	var expenseTotal, incomeTotal int64
	totals := map[string]*core.CategorySummary{}
	for _, tx := range txs {
		if tx.IsExpense() {
			expenseTotal += tx.Amount.Cents
		} else {
			incomeTotal += tx.Amount.Cents
		}
		key := string(tx.Type) + "/" + tx.Category.Name
		group, ok := totals[key]
		if !ok {
			group = &core.CategorySummary{Category: tx.Category.Name, Type: tx.Type}
			totals[key] = group
		}
		group.TotalCents += tx.Amount.Cents
	}

	result := make([]core.CategorySummary, 0, len(totals))
	for _, group := range totals {
		typeTotal := expenseTotal
		if group.Type == core.TypeIncome {
			typeTotal = incomeTotal
		}
		if typeTotal > 0 {
			group.Percentage = float64(group.TotalCents) / float64(typeTotal) * 100
		}
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalCents != result[j].TotalCents {
			return result[i].TotalCents > result[j].TotalCents
		}
		return result[i].Category < result[j].Category
	})
	return result
}

func goalStatus(expenseCents, goalCents int64) string {
	percentageUsed := float64(expenseCents) / float64(goalCents) * 100
	switch {
	case percentageUsed >= 100:
		return fmt.Sprintf("⚠️ Meta ultrapassada! %.0f%% usado", percentageUsed)
	case percentageUsed >= 80:
		return fmt.Sprintf("⚠️ %.0f%% da meta usado", percentageUsed)
	default:
		return fmt.Sprintf("✅ %.0f%% da meta usado", percentageUsed)
	}
}
