package bot

import (
	"fmt"

	"poupapig/internal/core"
)

// Canned pt-BR texts. Everything user-visible lives here so the tone stays
// consistent across the pipeline.

func welcomeMessage(name string) string {
	return fmt.Sprintf(`🐷 Olá %s! Eu sou o PoupaPig, seu assistente financeiro pessoal!

Vou te ajudar a controlar seus gastos direto pelo WhatsApp.

Para começar, me diga qual é a sua meta de gastos mensal. Por exemplo: "minha meta é 2500"`, name)
}

const goalPromptMessage = `Por favor, me diga qual é sua meta de gastos mensal para começarmos. 🎯

Pode ser algo como: "minha meta é 2500" ou só "2500".`

func goalConfirmationMessage(goal core.Money) string {
	return fmt.Sprintf(`✅ Perfeito! Sua meta mensal foi definida como %s

Agora você pode:
📝 Registrar gastos: "gastei 50 no mercado"
💰 Registrar receitas: "recebi 3000 de salário"
📊 Consultar saldo: "qual meu saldo?"
🎯 Mudar a meta: "minha meta agora é 3000"
📈 Pedir relatório: "me manda o relatório do mês"`, goal.Format())
}

const apologyMessage = "Desculpe, tive um problema ao processar sua mensagem. Pode tentar novamente? 🤔"

const notUnderstoodMessage = "Desculpe, não entendi sua mensagem. Pode reformular? 🤔"
