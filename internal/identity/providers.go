package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra/google"
)

// Provider is one OAuth sign-in method.
type Provider interface {
	Name() domain.AuthProvider
	// AuthURL is where the client is redirected to start signing in.
	AuthURL(state string) string
	// Exchange turns the callback grant (code or ID token) into an identity.
	Exchange(ctx context.Context, grant string) (domain.ExternalIdentity, error)
}

// IDTokenVerifier checks Google ID tokens.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*google.IDClaims, error)
}

// GoogleProvider signs in with Google ID tokens returned to the redirect URL.
type GoogleProvider struct {
	clientID    string
	redirectURL string
	verifier    IDTokenVerifier
}

func NewGoogleProvider(clientID, redirectURL string, verifier IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{clientID: clientID, redirectURL: redirectURL, verifier: verifier}
}

func (p *GoogleProvider) Name() domain.AuthProvider { return domain.AuthProviderGoogle }

func (p *GoogleProvider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURL)
	q.Set("response_type", "id_token")
	q.Set("response_mode", "form_post")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("nonce", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode()
}

func (p *GoogleProvider) Exchange(ctx context.Context, idToken string) (domain.ExternalIdentity, error) {
	claims, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: %v", domain.ErrAuthRequired, err)
	}
	return domain.ExternalIdentity{
		Provider:   domain.AuthProviderGoogle,
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		AvatarURL:  claims.Picture,
	}, nil
}

// GitHubProvider implements the GitHub OAuth web flow.
type GitHubProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	webBase      string
	apiBase      string
	httpClient   *http.Client
}

// GitHubOptions configures a GitHubProvider. The base URLs default to github.com.
type GitHubOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	WebBaseURL   string
	APIBaseURL   string
	HTTPClient   *http.Client
}

func NewGitHubProvider(opts GitHubOptions) *GitHubProvider {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	web := strings.TrimRight(opts.WebBaseURL, "/")
	if web == "" {
		web = "https://github.com"
	}
	api := strings.TrimRight(opts.APIBaseURL, "/")
	if api == "" {
		api = "https://api.github.com"
	}
	return &GitHubProvider{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		redirectURL:  opts.RedirectURL,
		webBase:      web,
		apiBase:      api,
		httpClient:   client,
	}
}

func (p *GitHubProvider) Name() domain.AuthProvider { return domain.AuthProviderGitHub }

func (p *GitHubProvider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURL)
	q.Set("scope", "read:user user:email")
	q.Set("state", state)
	return p.webBase + "/login/oauth/authorize?" + q.Encode()
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.redirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webBase+"/login/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := p.do(req, &token); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("github: token exchange: %w", err)
	}
	if token.AccessToken == "" {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: github: %s %s", domain.ErrAuthRequired, token.Error, token.Description)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/user", nil)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.do(req, &user); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("github: fetch user: %w", err)
	}
	if user.ID == 0 {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: github: empty user", domain.ErrAuthRequired)
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}
	return domain.ExternalIdentity{
		Provider:   domain.AuthProviderGitHub,
		ExternalID: strconv.FormatInt(user.ID, 10),
		Email:      user.Email,
		Name:       name,
		AvatarURL:  user.AvatarURL,
	}, nil
}

func (p *GitHubProvider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
