// Package whatsapp is the Evolution API gateway client for outbound
// messages: plain text and interactive selection lists.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JIDSuffix is the WhatsApp JID suffix the gateway appends to phone numbers.
const JIDSuffix = "@s.whatsapp.net"

// TrimJID strips the WhatsApp JID suffix, leaving the bare phone number.
func TrimJID(jid string) string {
	return strings.TrimSuffix(jid, JIDSuffix)
}

// Option is one selectable row in an interactive list message.
type Option struct {
	ID    string
	Title string
}

// Client talks to one Evolution API instance.
type Client struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

// New builds a gateway client for the given instance.
func New(baseURL, apiKey, instance string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendListRequest struct {
	Number      string        `json:"number"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ButtonText  string        `json:"buttonText"`
	Sections    []listSection `json:"sections"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	Title string `json:"title"`
	RowID string `json:"rowId"`
}

// SendText delivers a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	req := sendTextRequest{Number: phone, Text: text}
	if err := c.post(ctx, "/message/sendText/"+c.instance, req); err != nil {
		return fmt.Errorf("send text to %s: %w", phone, err)
	}
	return nil
}

// SendList delivers an interactive single-select list. Selecting a row echoes
// its RowID back through the webhook as the next inbound message.
func (c *Client) SendList(ctx context.Context, phone, title, description string, options []Option) error {
	rows := make([]listRow, 0, len(options))
	for _, opt := range options {
		rows = append(rows, listRow{Title: opt.Title, RowID: opt.ID})
	}
	req := sendListRequest{
		Number:      phone,
		Title:       title,
		Description: description,
		ButtonText:  "Escolher",
		Sections:    []listSection{{Title: title, Rows: rows}},
	}
	if err := c.post(ctx, "/message/sendList/"+c.instance, req); err != nil {
		return fmt.Errorf("send list to %s: %w", phone, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
