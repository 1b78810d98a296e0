package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"expenseman/internal/auth"
	"expenseman/internal/storage"

	"github.com/sirupsen/logrus"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}

// Signup registers a new user with a hashed password and signs them in.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		h.respondMessage(w, http.StatusBadRequest, "A valid email is required.")
		return
	}
	if req.Password == "" {
		h.respondMessage(w, http.StatusBadRequest, "A password is required.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	user, err := h.db.CreateUser(email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			h.respondMessage(w, http.StatusConflict, "Failed! Email is already in use!")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}

	token, err := h.signIn(user.ID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	h.log.WithField("user_id", user.ID).Info("user signed up")
	h.respondJSON(w, http.StatusOK, authResponse{ID: user.ID, Email: user.Email, AccessToken: token})
}

// Signin validates credentials and issues an access token.
func (h *Handlers) Signin(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.db.GetUserByEmail(email)
	if err != nil || user.PasswordHash == "" {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.respondStoreError(w, r, err)
			return
		}
		h.respondMessage(w, http.StatusNotFound, "User Not found.")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		h.respondMessage(w, http.StatusUnauthorized, "Invalid Password!")
		return
	}

	token, err := h.signIn(user.ID)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, authResponse{ID: user.ID, Email: user.Email, AccessToken: token})
}

// signIn issues a token and records the matching server-side session.
func (h *Handlers) signIn(userID string) (string, error) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	if err := h.db.CreateSession(token, userID, time.Now().Add(h.tokens.TTL())); err != nil {
		return "", err
	}
	return token, nil
}

type checkUserRequest struct {
	Email string `json:"email"`
}

// CheckUser reports whether a user with the given email exists.
func (h *Handlers) CheckUser(w http.ResponseWriter, r *http.Request) {
	var req checkUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	user, err := h.db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondJSON(w, http.StatusOK, map[string]any{"exists": false})
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"exists": true, "_id": user.ID})
}

type checkTokenRequest struct {
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

// CheckToken reports whether the given token is valid and belongs to the
// given user. Always responds 200; the verdict is in the body.
func (h *Handlers) CheckToken(w http.ResponseWriter, r *http.Request) {
	var req checkTokenRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	userID, err := h.tokens.Verify(req.AccessToken)
	matching := err == nil && userID == req.ID
	if matching {
		if _, err := h.db.GetUserByID(userID); err != nil {
			matching = false
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"matching": matching})
}

// CheckSignedIn responds 200 for any authenticated caller.
func (h *Handlers) CheckSignedIn(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Signout revokes the caller's server-side session. The token itself
// becomes useless once its session is gone.
func (h *Handlers) Signout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(TokenHeader)
	if token == "" {
		if cookie, err := r.Cookie(TokenCookieName); err == nil {
			token = cookie.Value
		}
	}
	if err := h.db.DeleteSession(token); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.clearTokenCookie(w)
	h.log.WithFields(logrus.Fields{"user_id": GetUserID(r)}).Debug("session destroyed")
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.cfg.DevMode,
		SameSite: http.SameSiteLaxMode,
	})
}
