package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"poupapig/internal/ai"
	"poupapig/internal/core"
)

// MirrorQueue signals the worker that a transaction awaits the ledger mirror.
type MirrorQueue interface {
	PublishLedgerMirror(ctx context.Context, transactionID int64) error
}

// Processor is the message pipeline. Every dependency is passed explicitly
// at construction; there is no global registry.
type Processor struct {
	users        UserStore
	transactions TransactionStore
	categories   CategoryStore
	intent       ai.Client
	notifier     Notifier
	mirror       MirrorQueue
	now          func() time.Time
}

// NewProcessor wires the pipeline. Mirror may be nil when no ledger mirror
// is configured.
func NewProcessor(users UserStore, transactions TransactionStore, categories CategoryStore, intent ai.Client, notifier Notifier, mirror MirrorQueue) *Processor {
	return &Processor{
		users:        users,
		transactions: transactions,
		categories:   categories,
		intent:       intent,
		notifier:     notifier,
		mirror:       mirror,
		now:          time.Now,
	}
}

// Result is the outcome of processing one inbound message.
type Result struct {
	MessageID string
	ReplyText string
	Actions   []ExecutedAction
}

// Process runs one inbound message through the pipeline: session resolution,
// first-contact onboarding or action dispatch, reply formatting and outbound
// delivery. Intent provider failures produce an apology reply, never an
// error to the caller.
func (p *Processor) Process(ctx context.Context, msg InboundMessage) (Result, error) {
	user, err := p.resolveSession(ctx, msg)
	if err != nil {
		return Result{}, err
	}

	result := Result{MessageID: newMessageID()}
	if user.IsNew() {
		result.ReplyText, result.Actions, err = p.handleFirstContact(ctx, &user, msg.Text)
		if err != nil {
			return Result{}, err
		}
		if sendErr := p.notifier.SendMessage(ctx, user.Phone, result.ReplyText); sendErr != nil {
			slog.ErrorContext(ctx, "reply delivery failed", "user_id", user.ID, "error", sendErr)
		}
		return result, nil
	}

	resp, err := p.intent.ProcessMessage(ctx, msg.Text, p.buildContext(ctx, user))
	if err != nil {
		slog.ErrorContext(ctx, "intent provider failed",
			"user_id", user.ID, "error", err)
		result.ReplyText = apologyMessage
		if sendErr := p.notifier.SendMessage(ctx, user.Phone, apologyMessage); sendErr != nil {
			slog.ErrorContext(ctx, "apology delivery failed", "user_id", user.ID, "error", sendErr)
		}
		return result, nil
	}

	message := resp.Message
	if message == "" {
		message = notUnderstoodMessage
	}
	result.Actions = p.executeActions(ctx, &user, resp.Actions)
	result.ReplyText = buildReply(message, result.Actions)

	if resp.NeedsConfirmation && len(resp.Options) > 0 {
		options := make([]ListOption, 0, len(resp.Options))
		for _, opt := range resp.Options {
			options = append(options, ListOption{ID: opt, Title: opt})
		}
		if sendErr := p.notifier.SendList(ctx, user.Phone, "PoupaPig", result.ReplyText, options); sendErr != nil {
			slog.ErrorContext(ctx, "list delivery failed", "user_id", user.ID, "error", sendErr)
		}
		return result, nil
	}

	if sendErr := p.notifier.SendMessage(ctx, user.Phone, result.ReplyText); sendErr != nil {
		slog.ErrorContext(ctx, "reply delivery failed", "user_id", user.ID, "error", sendErr)
	}
	return result, nil
}

// resolveSession loads the user for an identity, creating one in status New
// on first sight. Creation is the only side effect here: the welcome message
// goes out through the notifier.
func (p *Processor) resolveSession(ctx context.Context, msg InboundMessage) (core.User, error) {
	user, err := p.users.UserByPhone(ctx, msg.Phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	user, err = core.NewUser(msg.Phone, msg.PushName, p.now())
	if err != nil {
		return core.User{}, err
	}
	if err := p.users.CreateUser(ctx, &user); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "new user created", "user_id", user.ID, "phone", user.Phone)
	if err := p.notifier.SendMessage(ctx, user.Phone, welcomeMessage(user.Name)); err != nil {
		slog.ErrorContext(ctx, "welcome delivery failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// handleFirstContact drives onboarding: the first decimal number in the text
// becomes the monthly goal. Without one, the user is asked again and nothing
// changes.
func (p *Processor) handleFirstContact(ctx context.Context, user *core.User, text string) (string, []ExecutedAction, error) {
	goal, ok := core.FirstAmount(text)
	if !ok {
		return goalPromptMessage, nil, nil
	}

	updated, err := user.WithGoal(goal)
	if err != nil {
		return goalPromptMessage, nil, nil
	}
	if err := p.users.UpdateUser(ctx, updated); err != nil {
		return "", nil, fmt.Errorf("update user: %w", err)
	}
	*user = updated

	slog.InfoContext(ctx, "first-contact goal set",
		"user_id", user.ID, "goal_cents", goal.Cents)

	actions := []ExecutedAction{{Action: "set_monthly_goal", Success: true, Result: goal.Format()}}
	return goalConfirmationMessage(goal), actions, nil
}

// buildContext assembles the session context for the intent provider. Store
// failures degrade the context instead of failing the message: categories
// fall back to an empty list, the summary to nil.
func (p *Processor) buildContext(ctx context.Context, user core.User) ai.Context {
	convCtx := ai.Context{
		UserID:        user.ID,
		UserName:      user.Name,
		SessionStatus: user.Status,
		Categories:    p.categoryNames(ctx, user.ID),
	}
	summary, err := p.balanceSummary(ctx, user, core.PeriodCurrentMonth)
	if err != nil {
		slog.WarnContext(ctx, "balance summary for context failed",
			"user_id", user.ID, "error", err)
		return convCtx
	}
	convCtx.LastSummary = &summary
	return convCtx
}

// KnownCategories lists the global category names, for callers without a
// user scope.
func (p *Processor) KnownCategories(ctx context.Context) []string {
	return p.categoryNames(ctx, 0)
}

func (p *Processor) categoryNames(ctx context.Context, userID int64) []string {
	var names []string
	for _, typ := range []core.TransactionType{core.TypeExpense, core.TypeIncome} {
		categories, err := p.categories.CategoriesByType(ctx, typ, userID)
		if err != nil {
			slog.WarnContext(ctx, "category listing failed", "type", typ, "error", err)
			continue
		}
		for _, c := range categories {
			names = append(names, c.Name)
		}
	}
	return names
}

func newMessageID() string {
	return fmt.Sprintf("msg_%d_%06d", time.Now().UnixMilli(), rand.IntN(1_000_000))
}
