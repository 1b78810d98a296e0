package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"expenseman/internal/auth"
	"expenseman/internal/config"
	"expenseman/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Context key type to avoid collisions.
type contextKey string

// UserContextKey is the context key for the authenticated user's ID.
const UserContextKey contextKey = "user_id"

// TokenHeader is the header carrying the access token.
const TokenHeader = "x-access-token"

// TokenCookieName is the cookie the Google sign-in flow stores the access
// token in, so browser clients stay signed in across the redirect.
const TokenCookieName = "access_token"

// Mirrors the email format check of the user schema.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db     *storage.DB
	cfg    *config.Config
	log    *logrus.Logger
	tokens *auth.TokenIssuer
	google auth.GoogleVerifier
}

// NewHandlers creates a new Handlers instance. google may be nil, which
// disables the Google sign-in route.
func NewHandlers(db *storage.DB, cfg *config.Config, log *logrus.Logger, tokens *auth.TokenIssuer, google auth.GoogleVerifier) *Handlers {
	return &Handlers{db: db, cfg: cfg, log: log, tokens: tokens, google: google}
}

// GetUserID retrieves the authenticated user's ID from request context.
func GetUserID(r *http.Request) string {
	if id, ok := r.Context().Value(UserContextKey).(string); ok {
		return id
	}
	return ""
}

// AuthMiddleware verifies the access token and the server-side session
// bound to it, then attaches the user ID to the request context.
// Verification order: presence, token signature/expiry, session match.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		if token == "" {
			if cookie, err := r.Cookie(TokenCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			h.respondMessage(w, http.StatusUnauthorized, "No token provided!")
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			h.respondMessage(w, http.StatusUnauthorized, "Unauthorized!")
			return
		}

		// The session record is the revocation bound: a signed token with
		// no live session (signed out, or purged) is rejected, as is a
		// session recorded for a different user.
		sess, err := h.db.GetSession(token)
		if err != nil || sess.UserID != userID {
			h.respondMessage(w, http.StatusUnauthorized, "Unauthorized!")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware applies a fixed per-process request ceiling.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"message": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRateLimiter builds the process-wide limiter from a per-minute ceiling.
func NewRateLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Warn("failed to write response")
	}
}

func (h *Handlers) respondMessage(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"message": message})
}

// respondStoreError maps storage failures that reached the handler without
// a more specific translation.
func (h *Handlers) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.respondMessage(w, http.StatusNotFound, "Not found")
		return
	}
	h.log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("store call failed")
	h.respondMessage(w, http.StatusInternalServerError, "Internal server error")
}

// decodeBody decodes a JSON request body, responding 400 on malformed input.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondMessage(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}
