package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"poupapig/internal/ai"
	"poupapig/internal/bot"
	"poupapig/internal/cache"
	"poupapig/internal/ratelimit"
	"poupapig/internal/storage"
)

const testAPIToken = "test-token"

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()

	repo, err := storage.New(filepath.Join(t.TempDir(), "http_test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	memory := cache.NewMemory()
	t.Cleanup(memory.Stop)

	intent := ai.NewMock()
	notifier := bot.NewQueueNotifier(repo, nil)
	processor := bot.NewProcessor(repo, repo, repo, intent, notifier, nil)

	s := NewServer("127.0.0.1:0", processor, intent,
		ratelimit.New(memory, ratelimit.WebhookOptions()),
		ratelimit.New(memory, ratelimit.APIOptions()),
		testAPIToken)
	return s, repo
}

func webhookPayload(phone, text string, fromMe bool) string {
	return fmt.Sprintf(`{"instance":"main","data":{"key":{"fromMe":%t,"remoteJid":"%s@s.whatsapp.net","id":"MSG1"},
		"pushName":"Maria","message":{"conversation":%q}}}`, fromMe, phone, text)
}

func postWebhook(t *testing.T, s *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookProcessesMessage(t *testing.T) {
	s, repo := newTestServer(t)

	rec := postWebhook(t, s, webhookPayload("5511999990001", "minha meta é 2500", false))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "processed" {
		t.Errorf("status = %v, want processed", body["status"])
	}
	reply, _ := body["reply"].(string)
	if !strings.Contains(reply, "R$ 2500.00") {
		t.Errorf("reply %q does not confirm the goal", reply)
	}
	if id, _ := body["messageId"].(string); !strings.HasPrefix(id, "msg_") {
		t.Errorf("messageId = %v, want msg_ prefix", body["messageId"])
	}

	u, err := repo.UserByPhone(context.Background(), "5511999990001")
	if err != nil {
		t.Fatalf("UserByPhone() error = %v", err)
	}
	if u.MonthlyGoal == nil || u.MonthlyGoal.Cents != 250000 {
		t.Errorf("goal = %+v, want 250000 cents", u.MonthlyGoal)
	}
}

func TestWebhookIgnoresSelfEcho(t *testing.T) {
	s, repo := newTestServer(t)

	rec := postWebhook(t, s, webhookPayload("5511999990002", "resposta do bot", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Errorf("body = %s, want ignored status", rec.Body)
	}
	if _, err := repo.UserByPhone(context.Background(), "5511999990002"); err == nil {
		t.Error("self echo created a user")
	}
}

func TestWebhookRejectsMissingIdentity(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postWebhook(t, s, `{"instance":"main","data":{"key":{"fromMe":false},"message":{"conversation":"oi"}}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	payload := webhookPayload("5511999990003", "saldo", false)

	for i := 0; i < 30; i++ {
		rec := postWebhook(t, s, payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := postWebhook(t, s, payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("31st request status = %d, want 429", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["retryAfter"] != float64(60) {
		t.Errorf("retryAfter = %v, want 60", body["retryAfter"])
	}

	// A different sender is unaffected.
	rec = postWebhook(t, s, webhookPayload("5511999990004", "saldo", false))
	if rec.Code != http.StatusOK {
		t.Errorf("other sender status = %d, want 200", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s, _ := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/api/balance?phone=5511999990005", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, request)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without token status = %d, want 401", rec.Code)
	}

	request = httptest.NewRequest(http.MethodGet, "/api/balance?phone=5511999990005", nil)
	request.Header.Set("X-API-Token", "wrong")
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, request)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("with wrong token status = %d, want 401", rec.Code)
	}
}

func TestAPIBalanceUnknownUser(t *testing.T) {
	s, _ := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/api/balance?phone=5511999990006", nil)
	request.Header.Set("X-API-Token", testAPIToken)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, request)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for unknown user", rec.Code)
	}
}

func TestAPIIntent(t *testing.T) {
	s, _ := newTestServer(t)

	request := httptest.NewRequest(http.MethodPost, "/api/intent", strings.NewReader(`{"text":"gastei 50 no mercado"}`))
	request.Header.Set("X-API-Token", testAPIToken)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, request)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "registrar_gasto") {
		t.Errorf("body = %s, want registrar_gasto intent", rec.Body)
	}
}

