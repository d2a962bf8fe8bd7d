package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/tdhoang/authcore/internal/apperror"
	"github.com/tdhoang/authcore/internal/auth"
	"github.com/tdhoang/authcore/internal/service"
)

// Cookie names used by the OAuth flow. The session cookie names live in the
// auth package next to the middleware that reads them.
const (
	stateCookie    = "oauth_state"
	redirectCookie = "redirect_webpage_key"
)

// AuthHandler exposes the authentication API:
//
//	POST /auth/sign-in          password (or trusted password-less) sign-in
//	POST /auth/sign-up          register + immediate sign-in
//	GET  /auth/google           redirect to Google's consent page
//	GET  /auth/google/callback  complete the Google flow
//	GET  /auth/github           redirect to GitHub's authorization page
//	GET  /auth/github/callback  complete the GitHub flow
//	POST /auth/forgot-password  dispatch a reset notification, return a code
//	POST /auth/reset-password   redeem a reset code
//	GET  /auth/logout           clear the session cookies
//	GET  /api/me                current user's profile (protected)
type AuthHandler struct {
	svc         *service.AuthService
	google      auth.Provider
	github      auth.Provider
	accessTTL   time.Duration
	refreshTTL  time.Duration
	redirectTTL time.Duration
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. The providers are interfaces so
// tests can swap in fakes that skip the real OAuth exchange.
func NewAuthHandler(
	svc *service.AuthService,
	google auth.Provider,
	github auth.Provider,
	accessTTL, refreshTTL, redirectTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		svc:         svc,
		google:      google,
		github:      github,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		redirectTTL: redirectTTL,
		logger:      logger,
	}
}

// signInRequest is the sign-in body. webpage_key optionally names a
// registered front-end page whose URL is merged into the response.
type signInRequest struct {
	service.SignInInput
	WebpageKey string `json:"webpage_key"`
}

type resetPasswordRequest struct {
	CodeReset string `json:"code_reset"`
	Password  string `json:"password"`
}

// HandleSignIn authenticates with a name/email/phone identifier.
//
// HTTP: POST /auth/sign-in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.UserName == "" {
		writeError(w, apperror.ValidationFailed("user_name", "user_name is required"))
		return
	}

	session, err := h.svc.SignIn(r.Context(), req.SignInInput)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mergeWebpage(r, session, req.WebpageKey)
	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, session)
}

// HandleSignUp registers a new account and signs it in.
//
// HTTP: POST /auth/sign-up
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.UserName == "" {
		writeError(w, apperror.ValidationFailed("user_name", "user_name is required"))
		return
	}

	session, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, session)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google?webpage_key=xxx
//
// A random state value goes into a short-lived HttpOnly cookie and is checked
// on callback. The optional webpage_key survives the round trip through its
// own cookie, because the OAuth redirect drops query parameters.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.startOAuth(w, r, h.google)
}

// HandleGithubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github?webpage_key=xxx
func (h *AuthHandler) HandleGithubLogin(w http.ResponseWriter, r *http.Request) {
	h.startOAuth(w, r, h.github)
}

func (h *AuthHandler) startOAuth(w http.ResponseWriter, r *http.Request, provider auth.Provider) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(h.redirectTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if key := r.URL.Query().Get("webpage_key"); key != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     redirectCookie,
			Value:    key,
			Path:     "/",
			MaxAge:   int(h.redirectTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the Google flow: verify state, exchange the
// code, link or create the local account, issue the session cookies.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.finishOAuth(w, r, h.google, h.svc.SignInWithGoogle)
}

// HandleGithubCallback completes the GitHub flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGithubCallback(w http.ResponseWriter, r *http.Request) {
	h.finishOAuth(w, r, h.github, h.svc.SignInWithGithub)
}

type oauthSignIn func(ctx context.Context, identity *auth.Identity) (*auth.Session, error)

func (h *AuthHandler) finishOAuth(
	w http.ResponseWriter,
	r *http.Request,
	provider auth.Provider,
	signIn oauthSignIn,
) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		h.logger.Warn("oauth callback: state mismatch or missing")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	clearCookie(w, stateCookie)

	// The provider reports a denied consent screen via the error parameter.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		writeError(w, apperror.Unauthorized())
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	identity, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized())
		return
	}

	session, err := signIn(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)

	// A webpage key stored on the way out turns the callback into a redirect
	// to the front end; otherwise the session comes back as JSON.
	if keyCookie, err := r.Cookie(redirectCookie); err == nil && keyCookie.Value != "" {
		clearCookie(w, redirectCookie)
		if page, err := h.svc.WebpageRedirect(r.Context(), keyCookie.Value); err == nil {
			http.Redirect(w, r, page.URL, http.StatusSeeOther)
			return
		}
		h.logger.Warn("oauth callback: unknown webpage key", slog.String("key", keyCookie.Value))
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleForgotPassword dispatches a reset notification and returns the
// signed reset code.
//
// HTTP: POST /auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ForgotPasswordInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Email == "" && req.Phone == "" {
		writeError(w, apperror.ValidationFailed("email", "email or phone_number is required"))
		return
	}

	code, err := h.svc.ForgotPassword(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// HandleResetPassword redeems a reset code and stores the new password.
//
// HTTP: POST /auth/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Password == "" {
		writeError(w, apperror.ValidationFailed("password", "password is required"))
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.CodeReset, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleLogout clears the session cookies. The tokens themselves stay valid
// until expiry; without the cookies the browser can no longer send them.
//
// HTTP: GET /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, auth.AccessTokenCookie)
	clearCookie(w, auth.RefreshTokenCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable on a protected route; kept as a guard.
		writeError(w, apperror.Unauthorized())
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("me: lookup failed", slog.String("userID", claims.Subject))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// mergeWebpage resolves webpageKey and stores its URL on the session. An
// unknown key is non-fatal: sign-in succeeded, the redirect hint just stays
// empty.
func (h *AuthHandler) mergeWebpage(r *http.Request, session *auth.Session, webpageKey string) {
	if webpageKey == "" {
		return
	}
	page, err := h.svc.WebpageRedirect(r.Context(), webpageKey)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("webpage lookup failed", slog.String("key", webpageKey), slog.String("error", err.Error()))
		}
		return
	}
	session.WebpageURL = page.URL
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
