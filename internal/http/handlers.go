package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"poupapig/internal/bot"
	"poupapig/internal/core"
	"poupapig/internal/ratelimit"
)

// handleWebhook is the chat ingress: normalize the envelope, drop self
// echoes, rate limit by sender and run the pipeline. A pipeline failure
// uncounts the request so the sender is not charged for it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var env bot.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.WarnContext(r.Context(), "rejected malformed webhook payload", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody("invalid payload"))
		return
	}

	msg, err := bot.ExtractInbound(env)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if msg.FromMe {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	key := ratelimit.WebhookKey(msg.Phone)
	if err := s.webhookLimiter.Check(r.Context(), key); err != nil {
		writeRateLimit(w, err)
		return
	}

	result, err := s.processor.Process(r.Context(), msg)
	if err != nil {
		s.webhookLimiter.Uncount(r.Context(), key, true)
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "processed",
		"messageId": result.MessageID,
		"reply":     result.ReplyText,
	})
}

type balanceResponse struct {
	Income     string                `json:"income"`
	Expenses   string                `json:"expenses"`
	Balance    string                `json:"balance"`
	GoalStatus string                `json:"goalStatus,omitempty"`
	Categories []balanceCategoryItem `json:"categories"`
}

type balanceCategoryItem struct {
	Category   string  `json:"category"`
	Type       string  `json:"type"`
	Total      string  `json:"total"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	period := r.URL.Query().Get("period")

	summary, err := s.processor.BalanceByPhone(r.Context(), phone, period)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := balanceResponse{
		Income:     core.FormatCents(summary.IncomeCents),
		Expenses:   core.FormatCents(summary.ExpenseCents),
		Balance:    core.FormatCents(summary.BalanceCents),
		GoalStatus: summary.GoalStatus,
		Categories: make([]balanceCategoryItem, 0, len(summary.ByCategory)),
	}
	for _, group := range summary.ByCategory {
		resp.Categories = append(resp.Categories, balanceCategoryItem{
			Category:   group.Category,
			Type:       string(group.Type),
			Total:      core.FormatCents(group.TotalCents),
			Percentage: group.Percentage,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type setGoalRequest struct {
	Phone string  `json:"phone"`
	Valor float64 `json:"valor"`
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid payload"))
		return
	}

	cents := int64(req.Valor*100 + 0.5)
	previous, current, err := s.processor.SetGoalByPhone(r.Context(), req.Phone, cents)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := map[string]any{"goal": current.Format()}
	if previous != nil {
		resp["previousGoal"] = previous.Format()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.processor.ReportByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": report})
}

type intentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid payload"))
		return
	}

	intent, err := s.intent.DetectIntent(r.Context(), req.Text, s.processor.KnownCategories(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
