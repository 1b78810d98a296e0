package handlers

import (
	"crypto/hmac"
	"errors"
	"net/http"
	"strings"
	"time"

	"expenseman/internal/storage"
)

const csrfField = "g_csrf_token"

// GoogleCallback handles the POST from Google sign-in. It checks the
// anti-forgery token pair, verifies the ID token's signature before
// trusting any of its claims, finds or creates the matching user, and
// redirects back to the frontend.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	failedURL := h.cfg.FrontendURL + "/auth/failed"

	if h.google == nil {
		h.log.Warn("google sign-in attempted but no client ID is configured")
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	credential := r.PostFormValue("credential")
	csrfBody := r.PostFormValue(csrfField)
	csrfCookie, err := r.Cookie(csrfField)
	if credential == "" || csrfBody == "" || err != nil ||
		!hmac.Equal([]byte(csrfBody), []byte(csrfCookie.Value)) {
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	identity, err := h.google.Verify(r.Context(), credential)
	if err != nil {
		h.log.WithError(err).Warn("google credential rejected")
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	// The browser posted a form here, so even store failures answer with
	// a redirect rather than a JSON error page.
	email := strings.ToLower(identity.Email)
	user, err := h.db.GetUserByGoogle(email, identity.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		h.log.WithField("email", email).Info("registering new user from google sign-in")
		user, err = h.db.CreateGoogleUser(email, identity.Subject)
	}
	if err != nil {
		h.log.WithError(err).Error("google sign-in user lookup failed")
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	token, err := h.signIn(user.ID)
	if err != nil {
		h.log.WithError(err).Error("google sign-in session setup failed")
		http.Redirect(w, r, failedURL, http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   !h.cfg.DevMode,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.cfg.FrontendURL+"/auth/success", http.StatusFound)
}

// GoogleDirect rejects direct GETs to the callback URL.
func (h *Handlers) GoogleDirect(w http.ResponseWriter, r *http.Request) {
	h.respondMessage(w, http.StatusForbidden, "no direct access!")
}
