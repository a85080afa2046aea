package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/fmanana/autosense-backend/internal/observability/metrics"
)

const (
	messageMissingToken = "No token was provided"
	messageInvalidToken = "Invalid token"
)

// Middleware validates bearer tokens on protected routes.
type Middleware struct {
	Tokens *TokenService
	Policy Policy
	Logger hclog.Logger
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(tokens *TokenService, policy Policy, logger hclog.Logger) *Middleware {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Middleware{Tokens: tokens, Policy: policy, Logger: logger}
}

// Wrap applies token verification to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Policy.RequiresToken(r) {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := m.Tokens.Verify(r.Header.Get("Authorization"))
		if err != nil {
			message := messageInvalidToken
			reason := "invalid"
			if errors.Is(err, ErrMissingToken) {
				message = messageMissingToken
				reason = "missing"
			}
			metrics.IncAuthFailure(reason)
			if m.Logger != nil {
				m.Logger.Debug("request rejected", "path", r.URL.Path, "reason", reason, "error", err)
			}
			writeUnauthorized(w, message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(http.StatusUnauthorized),
		"message": message,
	})
}
