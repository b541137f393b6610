package bot

import (
	"context"
	"fmt"
	"log/slog"

	"poupapig/internal/core"
)

// setMonthlyGoal sets or replaces the user's monthly spending ceiling.
// Setting the first goal activates a New user.
func (p *Processor) setMonthlyGoal(ctx context.Context, user *core.User, params map[string]any) (string, error) {
	cents, ok := paramCents(params, "valor")
	if !ok {
		return "", core.ErrInvalidGoal
	}
	goal, err := core.NewMoney(cents, core.DefaultCurrency)
	if err != nil {
		return "", core.ErrInvalidGoal
	}

	previous := user.MonthlyGoal
	updated, err := user.WithGoal(goal)
	if err != nil {
		return "", err
	}
	if err := p.users.UpdateUser(ctx, updated); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}
	*user = updated

	slog.InfoContext(ctx, "monthly goal set",
		"user_id", user.ID,
		"goal_cents", goal.Cents,
		"status", user.Status)

	if previous != nil {
		return fmt.Sprintf("🎯 Meta atualizada de %s para %s", previous.Format(), goal.Format()), nil
	}
	return fmt.Sprintf("🎯 Meta mensal definida: %s", goal.Format()), nil
}
