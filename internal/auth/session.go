package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tdhoang/authcore/internal/model"
)

// Session is the full response payload of a successful sign-in or sign-up:
// the token pair merged with the public user data. The password hash is
// never part of it.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	UserID       string   `json:"user_id"`
	UserName     string   `json:"user_name"`
	Email        string   `json:"user_email,omitempty"`
	ImageURL     string   `json:"user_image_url,omitempty"`
	IsAdmin      bool     `json:"isAdmin"`
	Permissions  []string `json:"permissions"`

	// WebpageURL is merged in by the handler when the request named a
	// redirect webpage key that resolved to a record.
	WebpageURL string `json:"webpage_url,omitempty"`
}

// SessionIssuer produces access/refresh token pairs.
//
// Both tokens sign the same claims; only the expiry differs — access tokens
// use the codec's default TTL, refresh tokens the longer configured constant.
// Issuance is stateless: nothing is written anywhere.
type SessionIssuer struct {
	codec      *Codec
	refreshTTL time.Duration
}

// NewSessionIssuer creates a SessionIssuer over codec with the given
// refresh-token TTL.
func NewSessionIssuer(codec *Codec, refreshTTL time.Duration) *SessionIssuer {
	return &SessionIssuer{codec: codec, refreshTTL: refreshTTL}
}

// Issue signs a token pair for user with the given effective permissions and
// returns the merged session payload.
func (s *SessionIssuer) Issue(user *model.User, perms PermissionSet) (*Session, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		Name:             user.Name,
		Email:            user.Email,
		IsAdmin:          perms.IsAdmin,
		Permissions:      perms.Permissions,
	}

	access, err := s.codec.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("auth: issuing access token: %w", err)
	}

	refresh, err := s.codec.SignWithTTL(claims, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: issuing refresh token: %w", err)
	}

	permissions := perms.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		ImageURL:     user.ImageURL,
		IsAdmin:      perms.IsAdmin,
		Permissions:  permissions,
	}, nil
}
