package bot

import (
	"errors"
	"fmt"
	"strings"

	"poupapig/internal/core"
)

// buildReply merges the provider's conversational message with the formatted
// results of every executed action. Failures render as inline error lines.
func buildReply(aiMessage string, actions []ExecutedAction) string {
	parts := []string{aiMessage}
	for _, action := range actions {
		if action.Success {
			if action.Result != "" {
				parts = append(parts, action.Result)
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("❌ Erro ao executar %s: %s", action.Action, errorText(action.Err)))
	}
	return strings.Join(parts, "\n\n")
}

// errorText maps domain errors onto user-facing pt-BR lines. Anything
// unmapped gets a generic line; raw error detail never reaches the chat.
func errorText(err error) string {
	if err == nil {
		return "erro desconhecido"
	}
	for _, m := range errorTexts {
		if errors.Is(err, m.sentinel) {
			return m.text
		}
	}
	return "não foi possível completar a operação"
}

var errorTexts = []struct {
	sentinel error
	text     string
}{
	{core.ErrInvalidAmount, "o valor informado é inválido"},
	{core.ErrInvalidGoal, "o valor da meta é inválido"},
	{core.ErrInvalidType, "o tipo informado é inválido"},
	{core.ErrDescriptionTooShort, "a descrição é curta demais"},
	{core.ErrCategoryTypeMismatch, "a categoria não combina com o tipo da transação"},
	{core.ErrCategoryNotFound, "categoria não encontrada"},
	{core.ErrNoDefaultCategory, "nenhuma categoria disponível"},
	{core.ErrUserNotFound, "usuário não encontrado"},
	{ErrUnknownAction, "não reconheci essa operação"},
	{ErrReportUnavailable, "esse tipo de relatório ainda não está disponível"},
}

func formatRegisteredTransaction(tx core.Transaction, monthlyExpenseCents, monthBalanceCents int64, banner string) string {
	var b strings.Builder
	verb := "Gasto registrado"
	if !tx.IsExpense() {
		verb = "Receita registrada"
	}
	fmt.Fprintf(&b, "✅ %s: %s\n", verb, tx.Amount.Format())
	fmt.Fprintf(&b, "%s %s", tx.Category.Icon, tx.Category.Name)
	if tx.IsExpense() {
		fmt.Fprintf(&b, "\n📉 Gastos do mês: %s", core.FormatCents(monthlyExpenseCents))
	}
	fmt.Fprintf(&b, "\n💵 Saldo do mês: %s", core.FormatCents(monthBalanceCents))
	if banner != "" {
		b.WriteString("\n\n" + banner)
	}
	return b.String()
}

func formatBalance(s core.BalanceSummary) string {
	var b strings.Builder
	b.WriteString("💰 RESUMO FINANCEIRO\n\n")
	fmt.Fprintf(&b, "📈 Receitas: %s\n", core.FormatCents(s.IncomeCents))
	fmt.Fprintf(&b, "📉 Gastos: %s\n", core.FormatCents(s.ExpenseCents))
	fmt.Fprintf(&b, "💵 Saldo: %s", core.FormatCents(s.BalanceCents))
	if s.GoalStatus != "" {
		b.WriteString("\n\n" + s.GoalStatus)
	}
	if len(s.ByCategory) > 0 {
		b.WriteString("\n\nPor categoria:")
		for _, group := range s.ByCategory {
			fmt.Fprintf(&b, "\n• %s: %s (%.0f%%)", group.Category, core.FormatCents(group.TotalCents), group.Percentage)
		}
	}
	return b.String()
}

func formatReport(s core.BalanceSummary, top []core.CategorySummary, insights []string, goal *core.Money) string {
	var b strings.Builder
	b.WriteString("📊 RELATÓRIO MENSAL\n\n")
	fmt.Fprintf(&b, "📈 Receitas: %s\n", core.FormatCents(s.IncomeCents))
	fmt.Fprintf(&b, "📉 Gastos: %s\n", core.FormatCents(s.ExpenseCents))
	fmt.Fprintf(&b, "💵 Saldo: %s", core.FormatCents(s.BalanceCents))
	if goal != nil && goal.Cents > 0 {
		used := float64(s.ExpenseCents) / float64(goal.Cents) * 100
		fmt.Fprintf(&b, "\n🎯 Meta Mensal: %s (%.0f%% usado)", goal.Format(), used)
	}
	if len(top) > 0 {
		b.WriteString("\n\n🏆 Principais categorias:")
		for i, group := range top {
			fmt.Fprintf(&b, "\n%d. %s: %s (%.0f%%)", i+1, group.Category, core.FormatCents(group.TotalCents), group.Percentage)
		}
	}
	if len(insights) > 0 {
		b.WriteString("\n")
		for _, insight := range insights {
			b.WriteString("\n" + insight)
		}
	}
	return b.String()
}
