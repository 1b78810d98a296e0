package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"expenseman/internal/auth"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postGoogleCallback submits the sign-in form the way Google's button does,
// with the credential and the CSRF token in both body and cookie.
func (suite *HandlersTestSuite) postGoogleCallback(credential, csrfBody, csrfCookie string) *httptest.ResponseRecorder {
	form := url.Values{}
	if credential != "" {
		form.Set("credential", credential)
	}
	if csrfBody != "" {
		form.Set(csrfField, csrfBody)
	}
	req := httptest.NewRequest("POST", "/auth/google", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if csrfCookie != "" {
		req.AddCookie(&http.Cookie{Name: csrfField, Value: csrfCookie})
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) TestGoogleCallbackSignsUpAndIn() {
	suite.google.identity = &auth.Identity{Subject: "google-sub-1", Email: "G@X.com"}

	w := suite.postGoogleCallback("id-token", "csrf", "csrf")
	assert.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "http://frontend.test/auth/success", w.Header().Get("Location"))

	// The user was created with a normalized email and no password.
	user, err := suite.db.GetUserByGoogle("g@x.com", "google-sub-1")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), user.PasswordHash)

	// The issued cookie carries a working token.
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == TokenCookieName {
			token = c.Value
			assert.True(suite.T(), c.HttpOnly)
		}
	}
	require.NotEmpty(suite.T(), token, "access_token cookie not set")
	resp := suite.do("GET", "/auth/checksignedin", token, nil)
	assert.Equal(suite.T(), http.StatusOK, resp.Code)
}

func (suite *HandlersTestSuite) TestGoogleCallbackIsIdempotentPerSubject() {
	suite.google.identity = &auth.Identity{Subject: "google-sub-1", Email: "g@x.com"}

	suite.postGoogleCallback("id-token", "csrf", "csrf")
	w := suite.postGoogleCallback("id-token", "csrf", "csrf")
	assert.Equal(suite.T(), "http://frontend.test/auth/success", w.Header().Get("Location"))

	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count, "repeat sign-in must not create a second user")
}

func (suite *HandlersTestSuite) TestGoogleCallbackCSRF() {
	suite.google.identity = &auth.Identity{Subject: "google-sub-1", Email: "g@x.com"}

	cases := []struct {
		name       string
		credential string
		body       string
		cookie     string
	}{
		{"mismatched tokens", "id-token", "csrf-a", "csrf-b"},
		{"missing cookie", "id-token", "csrf", ""},
		{"missing body token", "id-token", "", "csrf"},
		{"missing credential", "", "csrf", "csrf"},
	}
	for _, tc := range cases {
		w := suite.postGoogleCallback(tc.credential, tc.body, tc.cookie)
		assert.Equal(suite.T(), http.StatusFound, w.Code, tc.name)
		assert.Equal(suite.T(), "http://frontend.test/auth/failed", w.Header().Get("Location"), tc.name)
	}

	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)
}

func (suite *HandlersTestSuite) TestGoogleCallbackStoreFailureRedirects() {
	// Even an internal failure must answer the browser's form post with
	// a redirect, not a JSON error page.
	suite.google.identity = &auth.Identity{Subject: "google-sub-1", Email: "g@x.com"}
	require.NoError(suite.T(), suite.db.Close())

	w := suite.postGoogleCallback("id-token", "csrf", "csrf")
	assert.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "http://frontend.test/auth/failed", w.Header().Get("Location"))
}

func (suite *HandlersTestSuite) TestGoogleCallbackRejectedCredential() {
	suite.google.err = auth.ErrInvalidToken

	w := suite.postGoogleCallback("forged", "csrf", "csrf")
	assert.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "http://frontend.test/auth/failed", w.Header().Get("Location"))
}

func (suite *HandlersTestSuite) TestGoogleCallbackDisabled() {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := NewHandlers(suite.db, suite.cfg, log, suite.tokens, nil)
	router := h.Router()

	form := url.Values{"credential": {"id-token"}, csrfField: {"csrf"}}
	req := httptest.NewRequest("POST", "/auth/google", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfField, Value: "csrf"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusFound, w.Code)
	assert.Equal(suite.T(), "http://frontend.test/auth/failed", w.Header().Get("Location"))
}

func (suite *HandlersTestSuite) TestGoogleCallbackNoDirectAccess() {
	w := suite.do("GET", "/auth/google", "", nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "no direct access!", suite.decode(w)["message"])
}
