package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// OpenAI implements Client on top of the OpenAI chat completions API using
// function calling for action extraction.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI builds an OpenAI-backed provider. Model falls back to a sane
// default when empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Tools          []chatTool      `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// actionTools describes the four operations the model may call.
var actionTools = []chatTool{
	{
		Type: "function",
		Function: toolFunction{
			Name:        ActionRegisterTransaction,
			Description: "Registra um gasto ou receita mencionado pelo usuário",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"descricao": map[string]any{"type": "string", "description": "Descrição da transação"},
					"valor":     map[string]any{"type": "number", "description": "Valor em reais"},
					"tipo":      map[string]any{"type": "string", "enum": []string{"gasto", "receita"}},
					"categoria": map[string]any{"type": "string", "description": "Nome da categoria"},
				},
				"required": []string{"descricao", "valor", "tipo"},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        ActionGetBalance,
			Description: "Consulta o saldo e o resumo financeiro do período",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"periodo": map[string]any{
						"type": "string",
						"enum": []string{"current_month", "last_month", "week", "year"},
					},
				},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        ActionSetGoal,
			Description: "Define ou altera a meta mensal de gastos do usuário",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"valor": map[string]any{"type": "number", "description": "Valor da meta em reais"},
				},
				"required": []string{"valor"},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        ActionGenerateReport,
			Description: "Gera um relatório financeiro detalhado",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tipo": map[string]any{
						"type": "string",
						"enum": []string{"mensal", "semanal", "anual"},
					},
				},
			},
		},
	},
}

// ProcessMessage sends the message with the session context and collects the
// model's reply and any tool calls as actions.
func (o *OpenAI) ProcessMessage(ctx context.Context, text string, convCtx Context) (Response, error) {
	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(convCtx)},
			{Role: "user", Content: text},
		},
		Tools:       actionTools,
		Temperature: 0.3,
	}

	resp, err := o.complete(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("process message: %w", err)
	}

	msg := resp.Choices[0].Message
	result := Response{Message: strings.TrimSpace(msg.Content)}
	for _, call := range msg.ToolCalls {
		params := map[string]any{}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
			slog.WarnContext(ctx, "discarding tool call with malformed arguments",
				"function", call.Function.Name, "error", err)
			continue
		}
		result.Actions = append(result.Actions, Action{
			Function:   call.Function.Name,
			Parameters: params,
		})
	}
	if result.Message == "" {
		result.Message = fallbackMessage(result.Actions)
	}
	return result, nil
}

// DetectIntent classifies a message into a coarse intent. Any provider or
// parse failure degrades to the unknown intent instead of an error; intent
// detection is advisory.
func (o *OpenAI) DetectIntent(ctx context.Context, text string, categories []string) (Intent, error) {
	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: intentPrompt(categories)},
			{Role: "user", Content: text},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0,
	}

	resp, err := o.complete(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "intent detection failed, falling back to unknown", "error", err)
		return Intent{Type: IntentUnknown}, nil
	}

	var intent Intent
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &intent); err != nil {
		slog.WarnContext(ctx, "intent response is not valid json, falling back to unknown", "error", err)
		return Intent{Type: IntentUnknown}, nil
	}
	if intent.Type == "" {
		intent.Type = IntentUnknown
	}
	return intent, nil
}

func (o *OpenAI) complete(ctx context.Context, req chatRequest) (chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return chatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return chatResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return chatResponse{}, fmt.Errorf("call openai: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return chatResponse{}, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return chatResponse{}, fmt.Errorf("parse response (status %d): %w", httpResp.StatusCode, err)
	}
	if parsed.Error != nil {
		return chatResponse{}, fmt.Errorf("openai error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if httpResp.StatusCode != http.StatusOK {
		return chatResponse{}, fmt.Errorf("openai status %d", httpResp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return chatResponse{}, fmt.Errorf("openai returned no choices")
	}
	return parsed, nil
}

func systemPrompt(convCtx Context) string {
	var b strings.Builder
	b.WriteString("Você é o PoupaPig, um assistente financeiro pessoal no WhatsApp. ")
	b.WriteString("Responda sempre em português brasileiro, de forma curta e amigável, com emojis moderados.\n\n")
	fmt.Fprintf(&b, "Usuário: %s (status: %s)\n", convCtx.UserName, convCtx.SessionStatus)
	if len(convCtx.Categories) > 0 {
		fmt.Fprintf(&b, "Categorias disponíveis: %s\n", strings.Join(convCtx.Categories, ", "))
	}
	if s := convCtx.LastSummary; s != nil {
		fmt.Fprintf(&b, "Último resumo: receitas %d centavos, gastos %d centavos.\n", s.IncomeCents, s.ExpenseCents)
	}
	b.WriteString("\nQuando o usuário mencionar um gasto, uma receita, pedir saldo, meta ou relatório, ")
	b.WriteString("chame a função correspondente. Nunca invente valores.")
	return b.String()
}

func intentPrompt(categories []string) string {
	return fmt.Sprintf(`Classifique a mensagem do usuário em uma intenção financeira.
Responda apenas JSON no formato {"tipo": "...", "confianca": 0.0, "dados": {}}.
Tipos possíveis: registrar_gasto, registrar_receita, consultar_saldo, definir_meta, gerar_relatorio, %s.
Categorias conhecidas: %s.`, IntentUnknown, strings.Join(categories, ", "))
}

// fallbackMessage picks a canned reply when the model answered with tool
// calls only. The action result blocks carry the real data; this line just
// keeps the reply conversational.
func fallbackMessage(actions []Action) string {
	if len(actions) == 0 {
		return "Desculpe, não entendi. Pode reformular? 🤔"
	}
	switch actions[0].Function {
	case ActionRegisterTransaction:
		return "Anotado! 📝"
	case ActionGetBalance:
		return "Aqui está o seu resumo! 💰"
	case ActionSetGoal:
		return "Meta atualizada! 🎯"
	case ActionGenerateReport:
		return "Preparei seu relatório! 📊"
	default:
		return "Pronto! ✅"
	}
}
