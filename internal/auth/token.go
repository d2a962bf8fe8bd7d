// Package auth provides the cryptographic building blocks of the
// authentication core: the signed-token codec, bcrypt password hashing,
// session issuance, permission aggregation, and the OAuth providers.
//
// TOKEN FLOW OVERVIEW:
//  1. Sign-in/sign-up resolves the user and their permission graph
//  2. SessionIssuer signs the same claims twice — short-lived access token,
//     long-lived refresh token — via the Codec
//  3. Tokens are stateless: validity derives solely from signature and expiry,
//     nothing is persisted server-side
//  4. The same Codec signs password-reset tokens with a distinct 5-minute TTL
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "authcore"

// Typed verification failures. Callers branch on these to decide whether a
// failure maps to Unauthorized (session token) or BadRequest (reset token);
// verification never panics or returns a raw library error.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the payload signed into every token. Access and refresh tokens
// carry the full set; password-reset tokens carry only the Subject (user ID).
type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"user_name,omitempty"`
	Email       string   `json:"user_email,omitempty"`
	IsAdmin     bool     `json:"isAdmin,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// SubjectClaims returns a Claims carrying only the user ID. Password-reset
// tokens sign exactly this — nothing about the account leaks into the code.
func SubjectClaims(userID string) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
}

// Codec signs and verifies compact expiring tokens (HS256 JWTs).
//
// The secret and default TTL are fixed at construction; the clock is
// injectable so expiry behaviour is testable without sleeping.
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewCodec creates a Codec with the given secret and default signing TTL.
// The secret should be at least 32 bytes of random data in production.
func NewCodec(secret string, defaultTTL time.Duration) (*Codec, error) {
	return NewCodecWithClock(secret, defaultTTL, time.Now)
}

// NewCodecWithClock is NewCodec with an injected clock. Tests use it to move
// time past a token's expiry deterministically.
func NewCodecWithClock(secret string, defaultTTL time.Duration, now func() time.Time) (*Codec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if defaultTTL <= 0 {
		return nil, errors.New("auth: default token TTL must be positive")
	}
	return &Codec{secret: []byte(secret), defaultTTL: defaultTTL, now: now}, nil
}

// Sign produces a signed token over claims with the codec's default TTL.
func (c *Codec) Sign(claims Claims) (string, error) {
	return c.SignWithTTL(claims, c.defaultTTL)
}

// SignWithTTL produces a signed token over claims with an explicit TTL.
// Used for refresh tokens (long-lived constant) and reset tokens (5 minutes).
func (c *Codec) SignWithTTL(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()

	claims.Issuer = issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and checks a token: signature, expiry, issuer, and that the
// algorithm is HS256 (rejecting algorithm-confusion attempts). On failure it
// returns ErrTokenExpired or ErrTokenInvalid so callers can branch.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}

	return claims, nil
}
