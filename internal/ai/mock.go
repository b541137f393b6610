package ai

import (
	"context"
	"strings"

	"poupapig/internal/core"
)

// Mock is a deterministic keyword-based provider used when no API key is
// configured and in tests. It recognizes the common Brazilian phrasings for
// the four actions and nothing more.
type Mock struct{}

// NewMock builds the keyword provider.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) ProcessMessage(ctx context.Context, text string, convCtx Context) (Response, error) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "gastei", "paguei", "comprei"):
		amount, ok := core.FirstAmount(text)
		if !ok {
			return Response{Message: "Entendi que foi um gasto, mas não achei o valor. Quanto foi? 🤔"}, nil
		}
		return Response{
			Message: "Anotado! 📝",
			Actions: []Action{{
				Function: ActionRegisterTransaction,
				Parameters: map[string]any{
					"descricao": text,
					"valor":     float64(amount.Cents) / 100,
					"tipo":      "gasto",
				},
			}},
		}, nil

	case containsAny(lower, "recebi", "ganhei"):
		amount, ok := core.FirstAmount(text)
		if !ok {
			return Response{Message: "Boa! Quanto você recebeu? 💰"}, nil
		}
		return Response{
			Message: "Que ótimo! 🎉",
			Actions: []Action{{
				Function: ActionRegisterTransaction,
				Parameters: map[string]any{
					"descricao": text,
					"valor":     float64(amount.Cents) / 100,
					"tipo":      "receita",
				},
			}},
		}, nil

	case containsAny(lower, "meta"):
		amount, ok := core.FirstAmount(text)
		if !ok {
			return Response{Message: "Qual valor você quer para a sua meta mensal?"}, nil
		}
		return Response{
			Message: "Meta atualizada! 🎯",
			Actions: []Action{{
				Function:   ActionSetGoal,
				Parameters: map[string]any{"valor": float64(amount.Cents) / 100},
			}},
		}, nil

	case containsAny(lower, "saldo", "resumo", "balanço", "balanco"):
		period := core.PeriodCurrentMonth
		if strings.Contains(lower, "passado") || strings.Contains(lower, "anterior") {
			period = core.PeriodLastMonth
		}
		return Response{
			Message: "Aqui está o seu resumo! 💰",
			Actions: []Action{{
				Function:   ActionGetBalance,
				Parameters: map[string]any{"periodo": period},
			}},
		}, nil

	case containsAny(lower, "relatório", "relatorio"):
		return Response{
			Message: "Preparei seu relatório! 📊",
			Actions: []Action{{
				Function:   ActionGenerateReport,
				Parameters: map[string]any{"tipo": "mensal"},
			}},
		}, nil
	}

	return Response{Message: "Desculpe, não entendi. Você pode registrar gastos, consultar seu saldo, definir uma meta ou pedir um relatório. 🐷"}, nil
}

func (m *Mock) DetectIntent(ctx context.Context, text string, categories []string) (Intent, error) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "gastei", "paguei", "comprei"):
		return Intent{Type: "registrar_gasto", Confidence: 0.9}, nil
	case containsAny(lower, "recebi", "ganhei"):
		return Intent{Type: "registrar_receita", Confidence: 0.9}, nil
	case containsAny(lower, "saldo", "resumo"):
		return Intent{Type: "consultar_saldo", Confidence: 0.9}, nil
	case containsAny(lower, "meta"):
		return Intent{Type: "definir_meta", Confidence: 0.9}, nil
	case containsAny(lower, "relatório", "relatorio"):
		return Intent{Type: "gerar_relatorio", Confidence: 0.9}, nil
	}
	return Intent{Type: IntentUnknown}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
