package bot

import (
	"encoding/json"
	"errors"
	"testing"
)

func envelopeFromJSON(t *testing.T, raw string) WebhookEnvelope {
	t.Helper()
	var env WebhookEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func TestExtractInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    InboundMessage
		wantErr error
	}{
		{
			name: "free text",
			raw: `{"instance":"main","data":{"key":{"fromMe":false,"remoteJid":"5511999990001@s.whatsapp.net","id":"ABC"},
				"pushName":"Maria","message":{"conversation":"gastei 50 no mercado"}}}`,
			want: InboundMessage{
				Phone: "5511999990001", Text: "gastei 50 no mercado",
				PushName: "Maria", Instance: "main",
			},
		},
		{
			name: "list selection wins over empty conversation",
			raw: `{"instance":"main","data":{"key":{"fromMe":false,"remoteJid":"5511999990002@s.whatsapp.net","id":"DEF"},
				"pushName":"João","message":{"listResponseMessage":{"singleSelectReply":{"selectedRowId":"relatorio_mensal"}}}}}`,
			want: InboundMessage{
				Phone: "5511999990002", Text: "relatorio_mensal",
				PushName: "João", Instance: "main",
			},
		},
		{
			name: "self echo flagged",
			raw: `{"instance":"main","data":{"key":{"fromMe":true,"remoteJid":"5511999990003@s.whatsapp.net","id":"GHI"},
				"pushName":"Maria","message":{"conversation":"resposta do bot"}}}`,
			want: InboundMessage{
				Phone: "5511999990003", Text: "resposta do bot",
				PushName: "Maria", Instance: "main", FromMe: true,
			},
		},
		{
			name: "missing push name defaults",
			raw: `{"instance":"main","data":{"key":{"fromMe":false,"remoteJid":"5511999990004@s.whatsapp.net","id":"JKL"},
				"message":{"conversation":"oi"}}}`,
			want: InboundMessage{
				Phone: "5511999990004", Text: "oi",
				PushName: "User", Instance: "main",
			},
		},
		{
			name: "empty message body",
			raw: `{"instance":"main","data":{"key":{"fromMe":false,"remoteJid":"5511999990005@s.whatsapp.net","id":"MNO"},
				"pushName":"Ana","message":{}}}`,
			want: InboundMessage{
				Phone: "5511999990005", Text: "",
				PushName: "Ana", Instance: "main",
			},
		},
		{
			name:    "missing identity",
			raw:     `{"instance":"main","data":{"key":{"fromMe":false},"pushName":"Maria","message":{"conversation":"oi"}}}`,
			wantErr: ErrMissingIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractInbound(envelopeFromJSON(t, tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExtractInbound() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractInbound() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractInbound() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
