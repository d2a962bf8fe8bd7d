// Package config loads process-wide configuration from the environment.
//
// Everything here is read once at startup and treated as read-only after
// that. Components receive the values they need through their constructors —
// there is no ambient global lookup at call time.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration.
type Config struct {
	Port   int    `env:"PORT"    envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/authcore.db"`

	// JWT_SECRET must be a long random string, e.g. $(openssl rand -hex 32).
	// The same secret signs access, refresh, and password-reset tokens.
	JWTSecret string `env:"JWT_SECRET"`

	// AccessTokenTTL is the default signing expiry; RefreshTokenTTL is the
	// distinct long-lived constant used only for refresh tokens.
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// ResetTokenTTL bounds the password-reset window. Kept short: the token
	// is not tracked server-side, so expiry is its only kill switch.
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"5m"`

	// RedirectCookieTTL bounds how long a webpage_key survives in the
	// redirect cookie between the OAuth entry route and the callback.
	RedirectCookieTTL time.Duration `env:"REDIRECT_COOKIE_TTL" envDefault:"10m"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	GithubClientID     string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// SMTP settings for the reset-password mailer. When SMTPHost is empty
	// the mailer logs instead of sending.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`

	// Twilio settings for the SMS dispatcher. When unset the sender is a
	// logging stub, matching the current state of the phone reset path.
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM"`
}

// Load parses configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}
	if cfg.GithubCallbackURL == "" {
		cfg.GithubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}
