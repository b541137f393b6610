package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"poupapig/internal/ai"
	"poupapig/internal/core"
)

// ErrUnknownAction marks an action whose function name maps to no use case.
var ErrUnknownAction = errors.New("unknown action")

// ActionKind is the closed set of dispatchable actions. Unknown function
// names are rejected at parse time and never reach the execution switch.
type ActionKind int

const (
	KindRegisterTransaction ActionKind = iota
	KindGetBalance
	KindSetGoal
	KindGenerateReport
)

// String returns the wire-level function name.
func (k ActionKind) String() string {
	switch k {
	case KindRegisterTransaction:
		return ai.ActionRegisterTransaction
	case KindGetBalance:
		return ai.ActionGetBalance
	case KindSetGoal:
		return ai.ActionSetGoal
	case KindGenerateReport:
		return ai.ActionGenerateReport
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind maps a function name onto the closed action set.
func ParseActionKind(name string) (ActionKind, error) {
	switch name {
	case ai.ActionRegisterTransaction:
		return KindRegisterTransaction, nil
	case ai.ActionGetBalance:
		return KindGetBalance, nil
	case ai.ActionSetGoal:
		return KindSetGoal, nil
	case ai.ActionGenerateReport:
		return KindGenerateReport, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}

// ExecutedAction is the recorded outcome of one dispatched action.
type ExecutedAction struct {
	Action  string
	Success bool
	Result  string
	Err     error
}

// executeActions runs every proposed action independently. One action
// failing never aborts its siblings; each outcome is collected.
func (p *Processor) executeActions(ctx context.Context, user *core.User, actions []ai.Action) []ExecutedAction {
	results := make([]ExecutedAction, 0, len(actions))
	for _, action := range actions {
		results = append(results, p.executeAction(ctx, user, action))
	}
	return results
}

func (p *Processor) executeAction(ctx context.Context, user *core.User, action ai.Action) ExecutedAction {
	kind, err := ParseActionKind(action.Function)
	if err != nil {
		slog.WarnContext(ctx, "rejecting unknown action", "function", action.Function, "user_id", user.ID)
		return ExecutedAction{Action: action.Function, Success: false, Err: err}
	}

	var result string
	switch kind {
	case KindRegisterTransaction:
		result, err = p.registerTransaction(ctx, user, action.Parameters)
	case KindGetBalance:
		result, err = p.getBalance(ctx, *user, action.Parameters)
	case KindSetGoal:
		result, err = p.setMonthlyGoal(ctx, user, action.Parameters)
	case KindGenerateReport:
		result, err = p.generateReport(ctx, *user, action.Parameters)
	}
	if err != nil {
		slog.WarnContext(ctx, "action failed",
			"function", kind.String(), "user_id", user.ID, "error", err)
		return ExecutedAction{Action: kind.String(), Success: false, Err: err}
	}
	return ExecutedAction{Action: kind.String(), Success: true, Result: result}
}

// Parameter bag helpers. Provider output is untyped JSON, so every read
// tolerates missing keys and wrong types.

func paramString(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// paramCents reads a monetary parameter given in whole currency units and
// converts it to cents, rounding to the nearest cent.
func paramCents(params map[string]any, key string) (int64, bool) {
	v, ok := paramFloat(params, key)
	if !ok {
		return 0, false
	}
	return int64(v*100 + 0.5), true
}
