package bot

import (
	"context"
	"errors"
	"fmt"

	"poupapig/internal/core"
)

// ErrReportUnavailable marks a requested report variant that does not exist.
// Only the monthly report is implemented; the others stay unavailable rather
// than guessing at semantics.
var ErrReportUnavailable = errors.New("report type not available")

const topCategoryLimit = 5

// generateReport builds the monthly report: current-month aggregation
// narrowed to the top categories, plus rule-based insights.
func (p *Processor) generateReport(ctx context.Context, user core.User, params map[string]any) (string, error) {
	if tipo := paramString(params, "tipo"); tipo != "" && tipo != "mensal" {
		return "", fmt.Errorf("%w: %q", ErrReportUnavailable, tipo)
	}

	summary, err := p.balanceSummary(ctx, user, core.PeriodCurrentMonth)
	if err != nil {
		return "", err
	}

	top := summary.ByCategory
	if len(top) > topCategoryLimit {
		top = top[:topCategoryLimit]
	}
	// Annotate every top category with its share of total expenses, income
	// groups included.
	annotated := make([]core.CategorySummary, len(top))
	copy(annotated, top)
	for i := range annotated {
		if summary.ExpenseCents > 0 {
			annotated[i].Percentage = float64(annotated[i].TotalCents) / float64(summary.ExpenseCents) * 100
		} else {
			annotated[i].Percentage = 0
		}
	}

	return formatReport(summary, annotated, reportInsights(summary, annotated), user.MonthlyGoal), nil
}

// reportInsights applies the insight rules in order; every applicable rule
// contributes a line.
func reportInsights(summary core.BalanceSummary, top []core.CategorySummary) []string {
	var insights []string
	switch {
	case summary.ExpenseCents > summary.IncomeCents:
		insights = append(insights, "🚨 Atenção: seus gastos superaram suas receitas este mês!")
	case summary.IncomeCents > 2*summary.ExpenseCents:
		insights = append(insights, "🌟 Excelente! Você está economizando mais da metade da sua renda!")
	default:
		insights = append(insights, "👍 Suas receitas estão cobrindo seus gastos.")
	}

	if len(top) > 0 && top[0].Type == core.TypeExpense && top[0].Percentage > 40 {
		insights = append(insights, fmt.Sprintf("📌 %.0f%% dos seus gastos estão concentrados em %s.",
			top[0].Percentage, top[0].Category))
	}
	return insights
}
