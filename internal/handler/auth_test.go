package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdhoang/authcore/internal/auth"
	"github.com/tdhoang/authcore/internal/handler"
	"github.com/tdhoang/authcore/internal/model"
	"github.com/tdhoang/authcore/internal/notify"
	sqliteRepo "github.com/tdhoang/authcore/internal/repository/sqlite"
	"github.com/tdhoang/authcore/internal/service"
)

// fakeProvider stands in for the real OAuth providers so callback tests
// never leave the process.
type fakeProvider struct {
	identity *auth.Identity
	err      error
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	return f.identity, f.err
}

type testHandler struct {
	h      *handler.AuthHandler
	codec  *auth.Codec
	google *fakeProvider
	github *fakeProvider
	db     *sqliteRepo.DB
}

// newTestHandler wires a real service over an in-memory database; only the
// OAuth providers are faked. The mailer and SMS sender run in their logging
// stub modes, so nothing leaves the process.
func newTestHandler(t *testing.T) *testHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	codec, err := auth.NewCodec("test-secret-at-least-16-chars!!", 15*time.Minute)
	require.NoError(t, err)

	mailer, err := notify.NewSMTPMailer("", 0, "", "", "no-reply@test", logger)
	require.NoError(t, err)

	svc := service.NewAuthService(
		db.Users(),
		db.Webpages(),
		codec,
		auth.NewSessionIssuer(codec, 168*time.Hour),
		auth.NewPasswordServiceForTest(4),
		mailer,
		notify.NewTwilioSender("", "", "", logger),
		5*time.Minute,
		logger,
	)

	google := &fakeProvider{}
	github := &fakeProvider{}

	return &testHandler{
		h: handler.NewAuthHandler(
			svc, google, github,
			15*time.Minute, 168*time.Hour, 10*time.Minute,
			logger,
		),
		codec:  codec,
		google: google,
		github: github,
		db:     db,
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandleSignUp(t *testing.T) {
	t.Run("creates account and sets session cookies", func(t *testing.T) {
		th := newTestHandler(t)

		rr := postJSON(t, th.h.HandleSignUp, "/auth/sign-up",
			`{"user_name":"alice","email":"a@x.com","password":"p1"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var session auth.Session
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, "alice", session.UserName)

		access := cookieByName(rr, auth.AccessTokenCookie)
		require.NotNil(t, access)
		assert.Equal(t, session.AccessToken, access.Value)
		assert.True(t, access.HttpOnly)

		refresh := cookieByName(rr, auth.RefreshTokenCookie)
		require.NotNil(t, refresh)
		assert.Equal(t, session.RefreshToken, refresh.Value)
	})

	t.Run("duplicate registration is a 400", func(t *testing.T) {
		th := newTestHandler(t)

		first := postJSON(t, th.h.HandleSignUp, "/auth/sign-up",
			`{"user_name":"alice","password":"p1"}`)
		require.Equal(t, http.StatusCreated, first.Code)

		second := postJSON(t, th.h.HandleSignUp, "/auth/sign-up",
			`{"user_name":"alice","password":"p2"}`)
		assert.Equal(t, http.StatusBadRequest, second.Code)
		assert.Contains(t, second.Body.String(), "duplicate")
	})

	t.Run("invalid body", func(t *testing.T) {
		th := newTestHandler(t)
		rr := postJSON(t, th.h.HandleSignUp, "/auth/sign-up", `{"user_name":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing user_name", func(t *testing.T) {
		th := newTestHandler(t)
		rr := postJSON(t, th.h.HandleSignUp, "/auth/sign-up", `{"password":"p1"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleSignIn(t *testing.T) {
	t.Run("wrong credentials are a 401 with a constant body", func(t *testing.T) {
		th := newTestHandler(t)
		postJSON(t, th.h.HandleSignUp, "/auth/sign-up", `{"user_name":"alice","password":"p1"}`)

		wrongPwd := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
			`{"user_name":"alice","password":"wrong"}`)
		noUser := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
			`{"user_name":"ghost","password":"p1"}`)

		assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
		assert.Equal(t, http.StatusUnauthorized, noUser.Code)
		assert.Equal(t, wrongPwd.Body.String(), noUser.Body.String())
	})

	t.Run("webpage_key merges into the response", func(t *testing.T) {
		th := newTestHandler(t)
		postJSON(t, th.h.HandleSignUp, "/auth/sign-up", `{"user_name":"alice","password":"p1"}`)

		require.NoError(t, th.db.Webpages().Create(context.Background(), &model.Webpage{
			Name: "Dashboard", Key: "dashboard", URL: "https://app.example.com/dashboard",
		}))

		rr := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
			`{"user_name":"alice","password":"p1","webpage_key":"dashboard"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		var session auth.Session
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))
		assert.Equal(t, "https://app.example.com/dashboard", session.WebpageURL)
	})

	t.Run("unknown webpage_key does not fail the sign-in", func(t *testing.T) {
		th := newTestHandler(t)
		postJSON(t, th.h.HandleSignUp, "/auth/sign-up", `{"user_name":"alice","password":"p1"}`)

		rr := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
			`{"user_name":"alice","password":"p1","webpage_key":"nope"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		var session auth.Session
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))
		assert.Empty(t, session.WebpageURL)
	})
}

func TestOAuthFlow(t *testing.T) {
	t.Run("login redirects to the provider with a state cookie", func(t *testing.T) {
		th := newTestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/google?webpage_key=dashboard", nil)
		rr := httptest.NewRecorder()
		th.h.HandleGoogleLogin(rr, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

		state := cookieByName(rr, "oauth_state")
		require.NotNil(t, state)
		assert.NotEmpty(t, state.Value)
		assert.True(t, state.HttpOnly)

		location := rr.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, "https://provider.example/authorize"))
		assert.Contains(t, location, state.Value)

		redirect := cookieByName(rr, "redirect_webpage_key")
		require.NotNil(t, redirect)
		assert.Equal(t, "dashboard", redirect.Value)
	})

	t.Run("callback rejects a state mismatch", func(t *testing.T) {
		th := newTestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=attacker", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "legit"})
		rr := httptest.NewRecorder()
		th.h.HandleGoogleCallback(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("google callback creates and signs in the linked account", func(t *testing.T) {
		th := newTestHandler(t)
		th.google.identity = &auth.Identity{
			Email: "ada@gmail.com", FirstName: "Ada", LastName: "Lovelace",
		}

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
		rr := httptest.NewRecorder()
		th.h.HandleGoogleCallback(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var session auth.Session
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))
		assert.Equal(t, "Ada Lovelace", session.UserName)
		assert.NotNil(t, cookieByName(rr, auth.AccessTokenCookie))

		// The account was linked as a GOOGLE login.
		user, err := th.db.Users().FindByEmailAndType(context.Background(), "ada@gmail.com", model.LoginGoogle)
		require.NoError(t, err)
		assert.Equal(t, model.LoginGoogle, user.LoginType)
	})

	t.Run("callback honours the stored redirect key", func(t *testing.T) {
		th := newTestHandler(t)
		th.github.identity = &auth.Identity{Username: "octocat"}

		require.NoError(t, th.db.Webpages().Create(context.Background(), &model.Webpage{
			Name: "Home", Key: "home", URL: "https://app.example.com/",
		}))

		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
		req.AddCookie(&http.Cookie{Name: "redirect_webpage_key", Value: "home"})
		rr := httptest.NewRecorder()
		th.h.HandleGithubCallback(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "https://app.example.com/", rr.Header().Get("Location"))
		assert.NotNil(t, cookieByName(rr, auth.AccessTokenCookie))
	})

	t.Run("callback surfaces a denied consent screen", func(t *testing.T) {
		th := newTestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied&state=s1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
		rr := httptest.NewRecorder()
		th.h.HandleGoogleCallback(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	th := newTestHandler(t)
	postJSON(t, th.h.HandleSignUp, "/auth/sign-up",
		`{"user_name":"alice","email":"a@x.com","password":"old-pass"}`)

	forgot := postJSON(t, th.h.HandleForgotPassword, "/auth/forgot-password",
		`{"email":"a@x.com","redirect_to":"https://app.example.com/reset"}`)
	require.Equal(t, http.StatusOK, forgot.Code)

	var reset service.ResetCode
	require.NoError(t, json.NewDecoder(forgot.Body).Decode(&reset))
	require.NotEmpty(t, reset.CodeReset)

	body, err := json.Marshal(map[string]string{
		"code_reset": reset.CodeReset,
		"password":   "new-pass",
	})
	require.NoError(t, err)
	rr := postJSON(t, th.h.HandleResetPassword, "/auth/reset-password", string(body))
	assert.Equal(t, http.StatusOK, rr.Code)

	// Old password is dead, new one works.
	oldSignIn := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
		`{"user_name":"alice","password":"old-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, oldSignIn.Code)

	newSignIn := postJSON(t, th.h.HandleSignIn, "/auth/sign-in",
		`{"user_name":"alice","password":"new-pass"}`)
	assert.Equal(t, http.StatusOK, newSignIn.Code)
}

func TestHandleForgotPassword_Validation(t *testing.T) {
	th := newTestHandler(t)

	rr := postJSON(t, th.h.HandleForgotPassword, "/auth/forgot-password", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	unknown := postJSON(t, th.h.HandleForgotPassword, "/auth/forgot-password",
		`{"email":"ghost@x.com"}`)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
}

func TestHandleResetPassword_BadCode(t *testing.T) {
	th := newTestHandler(t)

	rr := postJSON(t, th.h.HandleResetPassword, "/auth/reset-password",
		`{"code_reset":"garbage","password":"new-pass"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleLogout(t *testing.T) {
	th := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	th.h.HandleLogout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c := cookieByName(rr, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestHandleMe(t *testing.T) {
	th := newTestHandler(t)

	signUp := postJSON(t, th.h.HandleSignUp, "/auth/sign-up",
		`{"user_name":"alice","email":"a@x.com","password":"p1"}`)
	require.Equal(t, http.StatusCreated, signUp.Code)
	access := cookieByName(signUp, auth.AccessTokenCookie)
	require.NotNil(t, access)

	protected := auth.RequireAuth(th.codec)(http.HandlerFunc(th.h.HandleMe))

	t.Run("with a valid session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(access)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.NotContains(t, body, "password")

		var user model.User
		require.NoError(t, json.Unmarshal([]byte(body), &user))
		assert.Equal(t, "alice", user.Name)
	})

	t.Run("without a cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
