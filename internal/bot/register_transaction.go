package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"poupapig/internal/core"
)

// Default category names used when the intent provider names no category
// that exists. They are seeded as global categories.
const (
	defaultExpenseCategory = "Outros Gastos"
	defaultIncomeCategory  = "Outros Ganhos"
)

// registerTransaction validates and persists one transaction, then
// recomputes the monthly sums from the store and applies goal alert banding.
func (p *Processor) registerTransaction(ctx context.Context, user *core.User, params map[string]any) (string, error) {
	description := strings.TrimSpace(paramString(params, "descricao"))
	cents, hasAmount := paramCents(params, "valor")
	if !hasAmount {
		return "", core.ErrInvalidAmount
	}
	amount, err := core.NewMoney(cents, core.DefaultCurrency)
	if err != nil {
		return "", err
	}
	typ, err := core.ParseTransactionType(paramString(params, "tipo"))
	if err != nil {
		return "", err
	}

	category, err := p.resolveCategory(ctx, user.ID, typ, params)
	if err != nil {
		return "", err
	}

	now := p.now()
	tx, err := core.NewTransaction(user.ID, description, amount, typ, category, true, now)
	if err != nil {
		return "", err
	}
	if err := p.transactions.SaveTransaction(ctx, &tx); err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "transaction registered",
		"transaction_id", tx.ID,
		"user_id", user.ID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category.Name)

	if p.mirror != nil {
		if err := p.mirror.PublishLedgerMirror(ctx, tx.ID); err != nil {
			slog.WarnContext(ctx, "mirror publish failed, sweep will retry",
				"transaction_id", tx.ID, "error", err)
		}
	}

	// Sums are recomputed from the store on every registration. Concurrent
	// writers can still make the alert decision on a slightly stale sum;
	// that staleness is bounded to this one call.
	expenseSum, err := p.transactions.MonthlySum(ctx, user.ID, core.TypeExpense, now)
	if err != nil {
		return "", fmt.Errorf("monthly expense sum: %w", err)
	}
	incomeSum, err := p.transactions.MonthlySum(ctx, user.ID, core.TypeIncome, now)
	if err != nil {
		return "", fmt.Errorf("monthly income sum: %w", err)
	}

	var banner string
	if user.CanReceiveAlerts() {
		percentageUsed := float64(expenseSum) / float64(user.MonthlyGoal.Cents) * 100
		switch {
		case percentageUsed >= 100:
			banner = fmt.Sprintf("⚠️ Você ultrapassou sua meta mensal! (%.0f%% usado)", percentageUsed)
			if err := p.notifier.SendAlert(ctx, user.Phone, banner); err != nil {
				slog.ErrorContext(ctx, "goal alert delivery failed",
					"user_id", user.ID, "error", err)
			}
		case percentageUsed >= 80:
			banner = fmt.Sprintf("⚠️ Você já usou %.0f%% da sua meta mensal!", percentageUsed)
		}
	}

	return formatRegisteredTransaction(tx, expenseSum, incomeSum-expenseSum, banner), nil
}

// resolveCategory picks the transaction's category: explicit id first, then
// case-insensitive name match against the user's and global categories of
// the same type, then the type's default category.
func (p *Processor) resolveCategory(ctx context.Context, userID int64, typ core.TransactionType, params map[string]any) (core.Category, error) {
	if id, ok := paramFloat(params, "categoria_id"); ok {
		category, err := p.categories.CategoryByID(ctx, int64(id))
		if err != nil {
			return core.Category{}, err
		}
		if category.Type != typ {
			return core.Category{}, core.ErrCategoryTypeMismatch
		}
		return category, nil
	}

	candidates, err := p.categories.CategoriesByType(ctx, typ, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}

	if name := strings.TrimSpace(paramString(params, "categoria")); name != "" {
		for _, c := range candidates {
			if strings.EqualFold(c.Name, name) {
				return c, nil
			}
		}
	}

	fallback := defaultExpenseCategory
	if typ == core.TypeIncome {
		fallback = defaultIncomeCategory
	}
	for _, c := range candidates {
		if c.Name == fallback {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNoDefaultCategory
}
