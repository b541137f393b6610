package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"poupapig/internal/bot"
	"poupapig/internal/core"
	"poupapig/internal/ratelimit"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeRateLimit(w http.ResponseWriter, err error) {
	var rlErr *ratelimit.Error
	if errors.As(err, &rlErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "rate limit exceeded",
			"retryAfter": rlErr.RetryAfter,
		})
		return
	}
	// Cache failure, not a rejection.
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// clientAddr returns the caller address for rate-limit keying: the first
// X-Forwarded-For hop when present, else the connection's host.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeDomainError maps a pipeline failure onto the error taxonomy:
// validation failures are 400s logged at warn, domain and not-found
// failures 422s, anything else a 500 carrying only a safe message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		slog.WarnContext(r.Context(), "rejected invalid request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request"))
	case isDomainError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, bot.ErrMissingIdentity) ||
		errors.Is(err, core.ErrInvalidPhone) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidGoal) ||
		errors.Is(err, core.ErrNameTooShort)
}

func isDomainError(err error) bool {
	return core.IsNotFound(err) ||
		errors.Is(err, core.ErrCategoryTypeMismatch) ||
		errors.Is(err, core.ErrNoDefaultCategory) ||
		errors.Is(err, core.ErrInvalidType) ||
		errors.Is(err, bot.ErrReportUnavailable)
}
