// Package http exposes the webhook endpoint and the authenticated JSON API.
package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"poupapig/internal/ai"
	"poupapig/internal/bot"
	"poupapig/internal/ratelimit"
)

type Server struct {
	http.Server
	processor *bot.Processor
	intent    ai.Client

	webhookLimiter *ratelimit.Limiter
	apiLimiter     *ratelimit.Limiter
	apiToken       string

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, processor *bot.Processor, intent ai.Client, webhookLimiter, apiLimiter *ratelimit.Limiter, apiToken string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		processor:      processor,
		intent:         intent,
		webhookLimiter: webhookLimiter,
		apiLimiter:     apiLimiter,
		apiToken:       apiToken,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/balance", s.withAPIAuth(s.handleBalance))
	mux.HandleFunc("POST /api/goal", s.withAPIAuth(s.handleSetGoal))
	mux.HandleFunc("GET /api/report", s.withAPIAuth(s.handleReport))
	mux.HandleFunc("POST /api/intent", s.withAPIAuth(s.handleIntent))

	return s
}

// Shutdown gracefully shuts the server down, at most once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withAPIAuth checks the shared-secret token, then applies the API rate
// limit keyed by caller address and route.
func (s *Server) withAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-API-Token")
		if s.apiToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}

		key := ratelimit.APIKey(clientAddr(r), r.URL.Path)
		if err := s.apiLimiter.Check(r.Context(), key); err != nil {
			writeRateLimit(w, err)
			return
		}

		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
