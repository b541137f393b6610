// Package ai turns free-form chat text into structured financial actions.
// The bot never trusts the provider: every action it proposes is re-validated
// by the use case that executes it.
package ai

import (
	"context"

	"poupapig/internal/core"
)

// Action names the provider may propose. Anything else is rejected at
// dispatch time.
const (
	ActionRegisterTransaction = "registrar_transacao"
	ActionGetBalance          = "consultar_saldo"
	ActionSetGoal             = "definir_meta"
	ActionGenerateReport      = "gerar_relatorio"
)

// IntentUnknown is the fallback intent when classification fails or the
// provider's answer cannot be parsed.
const IntentUnknown = "nao_identificada"

// Action is one structured operation proposed by the provider. Parameters
// are raw and untyped; extraction and validation happen in the use cases.
type Action struct {
	Function   string         `json:"function"`
	Parameters map[string]any `json:"parameters"`
}

// Response is the provider's answer to one inbound message: a conversational
// reply plus zero or more proposed actions. Options, when present alongside
// NeedsConfirmation, render as an interactive list instead of plain text.
type Response struct {
	Message           string   `json:"message"`
	Actions           []Action `json:"actions"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
	Options           []string `json:"options,omitempty"`
}

// Context carries the session state the provider needs to answer well.
type Context struct {
	UserID        int64
	UserName      string
	SessionStatus core.UserStatus
	Categories    []string
	LastSummary   *core.BalanceSummary
}

// Intent is a lightweight classification of one message, used by the API
// surface rather than the chat pipeline.
type Intent struct {
	Type       string         `json:"tipo"`
	Confidence float64        `json:"confianca"`
	Data       map[string]any `json:"dados,omitempty"`
}

// Client is the intent provider port.
type Client interface {
	ProcessMessage(ctx context.Context, text string, convCtx Context) (Response, error)
	DetectIntent(ctx context.Context, text string, categories []string) (Intent, error)
}
