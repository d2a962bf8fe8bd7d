package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Identity is a verified external identity produced by an OAuth provider.
// It is transient — never persisted directly, only used by the linking state
// machine to resolve or create a local account.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
	Username  string // provider-specific login (GitHub handle); empty for Google
}

// Provider is an OAuth Authorization Code flow against one upstream:
// AuthURL builds the redirect target for the entry route, Exchange trades
// the callback code for a verified identity.
type Provider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// --- Google ---

// googleUserInfo is the portion of Google's userinfo response we care about.
type googleUserInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google code flow.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider. callbackURL must match the
// authorized redirect URI registered in the Google Cloud console exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the Google authorization URL carrying the CSRF state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google OAuth code: %w", err)
	}

	var info googleUserInfo
	if err := fetchJSON(ctx, p.config, token, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("auth: Google returned no email")
	}

	return &Identity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		AvatarURL: info.Picture,
	}, nil
}

// --- GitHub ---

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal what we need.
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"` // empty if hidden in GitHub settings
	Name      string `json:"name"`  // display name, e.g. "Ada Lovelace"
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub code flow.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider. Scopes: "read:user" for the
// public profile, "user:email" for the email addresses.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the GitHub authorization URL carrying the CSRF state.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's GitHub profile.
// The email may legitimately be empty; the linking state machine falls back
// to the GitHub login in that case.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging GitHub OAuth code: %w", err)
	}

	var gh githubUser
	if err := fetchJSON(ctx, p.config, token, "https://api.github.com/user", &gh); err != nil {
		return nil, err
	}
	if gh.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	first, last := splitName(gh.Name)
	return &Identity{
		Email:     gh.Email,
		FirstName: first,
		LastName:  last,
		AvatarURL: gh.AvatarURL,
		Username:  gh.Login,
	}, nil
}

// fetchJSON calls an API endpoint with the OAuth token and decodes the JSON
// response. oauth2.Config.Client returns an *http.Client that adds the
// bearer header to every request.
func fetchJSON(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, url string, out any) error {
	client := cfg.Client(ctx, token)

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding %s response: %w", url, err)
	}
	return nil
}

// splitName breaks a display name into first/last on the first space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
