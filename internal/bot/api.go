package bot

import (
	"context"
	"fmt"

	"poupapig/internal/core"
)

// Phone-keyed entry points for the authenticated API surface. They reuse the
// same use cases the chat pipeline dispatches to.

// BalanceByPhone returns the balance summary for a user's period.
func (p *Processor) BalanceByPhone(ctx context.Context, phone, period string) (core.BalanceSummary, error) {
	user, err := p.users.UserByPhone(ctx, phone)
	if err != nil {
		return core.BalanceSummary{}, err
	}
	return p.balanceSummary(ctx, user, period)
}

// SetGoalByPhone sets a user's monthly goal and returns the previous and new
// values. Previous is nil when no goal was set before.
func (p *Processor) SetGoalByPhone(ctx context.Context, phone string, cents int64) (previous *core.Money, current core.Money, err error) {
	user, err := p.users.UserByPhone(ctx, phone)
	if err != nil {
		return nil, core.Money{}, err
	}
	goal, err := core.NewMoney(cents, core.DefaultCurrency)
	if err != nil {
		return nil, core.Money{}, core.ErrInvalidGoal
	}

	previous = user.MonthlyGoal
	updated, err := user.WithGoal(goal)
	if err != nil {
		return nil, core.Money{}, err
	}
	if err := p.users.UpdateUser(ctx, updated); err != nil {
		return nil, core.Money{}, fmt.Errorf("update user: %w", err)
	}
	return previous, goal, nil
}

// ReportByPhone renders the monthly report for a user.
func (p *Processor) ReportByPhone(ctx context.Context, phone string) (string, error) {
	user, err := p.users.UserByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	return p.generateReport(ctx, user, map[string]any{"tipo": "mensal"})
}
