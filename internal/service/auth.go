// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP handlers and the store/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (rules) → repository.UserRepository (DB)
//	                   ↘ auth.Codec / auth.SessionIssuer (tokens)
//	                   ↘ notify.Mailer / notify.SMSSender (fire-and-forget)
//
// Every failure that leaves this package is one of the apperror kinds; raw
// store and codec errors are converted at this boundary.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tdhoang/authcore/internal/apperror"
	"github.com/tdhoang/authcore/internal/auth"
	"github.com/tdhoang/authcore/internal/model"
	"github.com/tdhoang/authcore/internal/notify"
	"github.com/tdhoang/authcore/internal/repository"
)

// AuthService orchestrates sign-in, sign-up, OAuth linking, and the
// password-reset flow.
type AuthService struct {
	users     repository.UserRepository
	webpages  repository.WebpageRepository
	codec     *auth.Codec
	issuer    *auth.SessionIssuer
	passwords *auth.PasswordService
	mailer    notify.Mailer
	sms       notify.SMSSender
	resetTTL  time.Duration
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	webpages repository.WebpageRepository,
	codec *auth.Codec,
	issuer *auth.SessionIssuer,
	passwords *auth.PasswordService,
	mailer notify.Mailer,
	sms notify.SMSSender,
	resetTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		webpages:  webpages,
		codec:     codec,
		issuer:    issuer,
		passwords: passwords,
		mailer:    mailer,
		sms:       sms,
		resetTTL:  resetTTL,
		logger:    logger,
	}
}

// SignInInput identifies an account. UserName is matched against name OR
// email OR phone. LoginType only applies to password-less sign-ins (OAuth
// trust path); a supplied password makes the recorded login type irrelevant.
type SignInInput struct {
	UserName  string          `json:"user_name"`
	Password  string          `json:"password"`
	LoginType model.LoginType `json:"user_type_login,omitempty"`
}

// SignUpInput carries the fields of a new account. An empty Password is
// replaced by a server-generated random one (OAuth-created accounts).
type SignUpInput struct {
	Email       string          `json:"email"`
	UserName    string          `json:"user_name"`
	Phone       string          `json:"phone_number"`
	Password    string          `json:"password"`
	FirstName   string          `json:"user_first_name"`
	LastName    string          `json:"user_last_name"`
	ImageURL    string          `json:"user_image_url"`
	DateOfBirth *time.Time      `json:"date_of_birth"`
	LoginType   model.LoginType `json:"user_type_login"`
}

// SignIn authenticates an account and issues a session.
//
// The error is apperror.ErrUnauthorized for both an unknown identifier and a
// wrong password — callers cannot probe which accounts exist.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*auth.Session, error) {
	var (
		user *model.User
		err  error
	)

	if in.Password != "" {
		user, err = s.users.FindByIdentifier(ctx, in.UserName)
	} else {
		lt := in.LoginType
		if lt == "" {
			lt = model.LoginAccount
		}
		user, err = s.users.FindByIdentifierAndType(ctx, in.UserName, lt)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/auth: resolving user: %w", err)
	}

	if in.Password != "" {
		if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
			return nil, apperror.Unauthorized()
		}
	}

	perms := auth.AggregatePermissions(user.Role)

	session, err := s.issuer.Issue(user, perms)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("loginType", string(user.LoginType)),
	)

	return session, nil
}

// SignUp creates an account and immediately signs it in.
//
// Creation is refused with apperror.ErrDuplicate when the name, email, or
// phone collides with any existing user. The follow-up sign-in uses the
// plaintext password (possibly the generated one) and the new name, so a
// successful sign-up always returns a full session.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*auth.Session, error) {
	_, err := s.users.FindByAnyOf(ctx, in.UserName, in.Email, in.Phone)
	switch {
	case err == nil:
		return nil, apperror.Duplicate("information has been registered")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: probing for duplicates: %w", err)
	}

	password := in.Password
	if password == "" {
		password, err = auth.RandomPassword()
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Name:         in.UserName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		LoginType:    in.LoginType,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		ImageURL:     in.ImageURL,
		DateOfBirth:  in.DateOfBirth,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("sign-up create failed", slog.String("name", in.UserName), slog.String("error", err.Error()))
		return nil, apperror.Conflict("sign up failed")
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("loginType", string(user.LoginType)),
	)

	return s.SignIn(ctx, SignInInput{UserName: user.Name, Password: password})
}

// SignInWithGoogle maps a verified Google identity onto a local account:
// an account already linked by (email, GOOGLE) gets a password-less
// sign-in; otherwise a new GOOGLE account is created and signed in.
func (s *AuthService) SignInWithGoogle(ctx context.Context, identity *auth.Identity) (*auth.Session, error) {
	if identity == nil {
		return nil, apperror.Unauthorized()
	}

	linked, err := s.users.FindByEmailAndType(ctx, identity.Email, model.LoginGoogle)
	if err == nil {
		return s.SignIn(ctx, SignInInput{UserName: linked.Name, LoginType: model.LoginGoogle})
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: resolving Google account: %w", err)
	}

	return s.SignUp(ctx, SignUpInput{
		Email:     identity.Email,
		UserName:  composedName(identity),
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		ImageURL:  identity.AvatarURL,
		LoginType: model.LoginGoogle,
	})
}

// SignInWithGithub is the GitHub variant of the linking state machine. When
// GitHub hides the email, the provider login stands in as the matching key
// and as the local name of a newly created account. The match key is also
// what gets stored in the email column, so a later visit with the same
// hidden-email identity resolves to the same account.
func (s *AuthService) SignInWithGithub(ctx context.Context, identity *auth.Identity) (*auth.Session, error) {
	if identity == nil {
		return nil, apperror.Unauthorized()
	}

	matchKey := identity.Email
	if matchKey == "" {
		matchKey = identity.Username
	}

	linked, err := s.users.FindByEmailAndType(ctx, matchKey, model.LoginGithub)
	if err == nil {
		return s.SignIn(ctx, SignInInput{UserName: linked.Name, LoginType: model.LoginGithub})
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: resolving GitHub account: %w", err)
	}

	name := identity.Username
	if name == "" {
		name = composedName(identity)
	}

	return s.SignUp(ctx, SignUpInput{
		Email:     matchKey,
		UserName:  name,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		ImageURL:  identity.AvatarURL,
		LoginType: model.LoginGithub,
	})
}

// ForgotPasswordInput addresses a reset request by email or phone, with a
// front-end redirect target carried into the notification.
type ForgotPasswordInput struct {
	Email      string `json:"email"`
	Phone      string `json:"phone_number"`
	RedirectTo string `json:"redirect_to"`
}

// ResetCode is the forgot-password response payload.
type ResetCode struct {
	CodeReset string `json:"code_reset"`
}

// ForgotPassword resolves the user by email or phone, dispatches the reset
// notification without waiting on it, and returns a signed reset code bound
// to the user ID with a short fixed expiry.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (*ResetCode, error) {
	user, err := s.users.FindByAnyOf(ctx, "", in.Email, in.Phone)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/auth: resolving reset user: %w", err)
	}

	// Dispatch is fire-and-forget: delivery failure must not fail (or delay)
	// the response. It gets its own context — the request's one dies with
	// the response.
	if in.Email != "" {
		go func(to, redirectTo string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendPasswordReset(ctx, to, redirectTo); err != nil {
				s.logger.Warn("reset mail dispatch failed",
					slog.String("to", to),
					slog.String("error", err.Error()),
				)
			}
		}(user.Email, in.RedirectTo)
	} else {
		go func(to string) {
			if err := s.sms.Send(to, "A password reset was requested for your account."); err != nil {
				s.logger.Warn("reset SMS dispatch failed",
					slog.String("to", to),
					slog.String("error", err.Error()),
				)
			}
		}(user.Phone)
	}

	code, err := s.codec.SignWithTTL(auth.SubjectClaims(user.ID), s.resetTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing reset code for user %s: %w", user.ID, err)
	}

	return &ResetCode{CodeReset: code}, nil
}

// ResetPassword redeems a reset code: a malformed or expired code fails
// with apperror.ErrValidation (a bad request, not a credential mismatch);
// a valid one re-hashes and persists the new password.
func (s *AuthService) ResetPassword(ctx context.Context, codeReset, newPassword string) error {
	claims, err := s.codec.Verify(codeReset)
	if err != nil {
		return apperror.ValidationFailed("code_reset", "reset password failed")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("code_reset", "reset password failed")
		}
		return fmt.Errorf("service/auth: updating password for user %s: %w", claims.Subject, err)
	}

	s.logger.Info("password reset", slog.String("userID", claims.Subject))
	return nil
}

// WebpageRedirect resolves a redirect webpage key. Not-found propagates as
// apperror.ErrNotFound; callers treat that as "respond without a redirect".
func (s *AuthService) WebpageRedirect(ctx context.Context, key string) (*model.Webpage, error) {
	page, err := s.webpages.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: resolving webpage %s: %w", key, err)
	}
	return page, nil
}

// GetUserByID returns the user for the given internal ID (the /api/me path).
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// composedName builds a "first last" display name from identity profile
// fields, the fallback when a provider supplies no username.
func composedName(identity *auth.Identity) string {
	return strings.TrimSpace(identity.FirstName + " " + identity.LastName)
}
