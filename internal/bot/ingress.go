// Package bot is the message-processing pipeline: webhook normalization,
// session resolution with first-contact onboarding, action dispatch against
// the intent provider, use case execution and reply formatting.
package bot

import (
	"errors"
	"strings"

	"poupapig/internal/whatsapp"
)

// ErrMissingIdentity is returned when no sender identity can be extracted
// from a webhook payload.
var ErrMissingIdentity = errors.New("missing sender identity")

// WebhookEnvelope mirrors the Evolution API webhook payload. Only the fields
// the pipeline reads are mapped.
type WebhookEnvelope struct {
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			FromMe    bool   `json:"fromMe"`
			RemoteJid string `json:"remoteJid"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ListResponseMessage struct {
				SingleSelectReply struct {
					SelectedRowID string `json:"selectedRowId"`
				} `json:"singleSelectReply"`
			} `json:"listResponseMessage"`
		} `json:"message"`
	} `json:"data"`
}

// InboundMessage is one normalized inbound delivery.
type InboundMessage struct {
	Phone    string
	Text     string
	PushName string
	Instance string
	FromMe   bool
}

// ExtractInbound normalizes a webhook envelope. The sender identity is the
// JID with the transport suffix stripped; text prefers free text over a list
// selection and defaults to empty. FromMe marks self-echoed deliveries,
// which callers must drop before dispatch.
func ExtractInbound(env WebhookEnvelope) (InboundMessage, error) {
	phone := whatsapp.TrimJID(strings.TrimSpace(env.Data.Key.RemoteJid))
	if phone == "" {
		return InboundMessage{}, ErrMissingIdentity
	}

	text := env.Data.Message.Conversation
	if text == "" {
		text = env.Data.Message.ListResponseMessage.SingleSelectReply.SelectedRowID
	}

	pushName := strings.TrimSpace(env.Data.PushName)
	if pushName == "" {
		pushName = "User"
	}

	return InboundMessage{
		Phone:    phone,
		Text:     text,
		PushName: pushName,
		Instance: env.Instance,
		FromMe:   env.Data.Key.FromMe,
	}, nil
}
