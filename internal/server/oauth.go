package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musictransfer/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// YouTubeScope lets the app manage the user's YouTube account.
	YouTubeScope = "https://www.googleapis.com/auth/youtube.force-ssl"

	DefaultRevokeURL = "https://accounts.google.com/o/oauth2/revoke"
	CallbackPath     = "/oauth2callback"
)

// Credentials are the Google OAuth credentials kept in a user's session.
type Credentials struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// OAuthToken converts the credentials to an [oauth2.Token].
func (c *Credentials) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Token,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// Update copies a possibly refreshed token into the credentials.
//
// It reports whether anything changed. Google omits the refresh token on refresh, so an empty one is ignored.
func (c *Credentials) Update(tok *oauth2.Token) bool {
	if tok == nil {
		return false
	}

	changed := tok.AccessToken != c.Token || !tok.Expiry.Equal(c.Expiry)
	c.Token = tok.AccessToken
	c.Expiry = tok.Expiry
	if tok.RefreshToken != "" && tok.RefreshToken != c.RefreshToken {
		c.RefreshToken = tok.RefreshToken
		changed = true
	}
	return changed
}

// GoogleOAuthOptions configures [GoogleOAuth].
type GoogleOAuthOptions struct {
	RedirectURL string // full callback URL; derived from BaseURL or the request when empty
	BaseURL     string // external base URL of the application
	RevokeURL   string
	HTTPClient  *http.Client
}

// GoogleOAuth runs the authorization code flow for the YouTube Data API.
type GoogleOAuth struct {
	config *oauth2.Config
	opts   GoogleOAuthOptions
}

// LoadGoogleOAuth reads a Google client-secrets JSON file.
//
// The file may omit redirect_uris when opts sets RedirectURL or BaseURL.
func LoadGoogleOAuth(path string, opts GoogleOAuthOptions) (*GoogleOAuth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: client secrets %s: %w", shared.ErrMissingCredentials, path, err)
	}

	config, err := google.ConfigFromJSON(data, YouTubeScope)
	if err != nil && (opts.RedirectURL != "" || opts.BaseURL != "") {
		config, err = configFromSecrets(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: client secrets %s: %w", shared.ErrInvalidConfig, path, err)
	}
	return NewGoogleOAuth(config, opts), nil
}

type clientSecrets struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// configFromSecrets builds a config from a secrets file without redirect_uris.
// The redirect is filled in per request by [GoogleOAuth.AuthCodeURL] and [GoogleOAuth.Exchange].
func configFromSecrets(data []byte) (*oauth2.Config, error) {
	var file struct {
		Web       *clientSecrets `json:"web"`
		Installed *clientSecrets `json:"installed"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	c := file.Web
	if c == nil {
		c = file.Installed
	}
	if c == nil || c.ClientID == "" {
		return nil, fmt.Errorf("no web or installed client in secrets file")
	}

	endpoint := google.Endpoint
	if c.AuthURI != "" {
		endpoint.AuthURL = c.AuthURI
	}
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{YouTubeScope},
	}, nil
}

// NewGoogleOAuth wraps an existing OAuth2 config.
func NewGoogleOAuth(config *oauth2.Config, opts GoogleOAuthOptions) *GoogleOAuth {
	if opts.RevokeURL == "" {
		opts.RevokeURL = DefaultRevokeURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleOAuth{config: config, opts: opts}
}

// RedirectURL returns the external callback URL for r.
func (g *GoogleOAuth) RedirectURL(r *http.Request) string {
	if g.opts.RedirectURL != "" {
		return g.opts.RedirectURL
	}
	if g.opts.BaseURL != "" {
		return strings.TrimRight(g.opts.BaseURL, "/") + CallbackPath
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + CallbackPath
}

func (g *GoogleOAuth) withRedirect(redirectURL string) *oauth2.Config {
	c := *g.config
	c.RedirectURL = redirectURL
	return &c
}

func (g *GoogleOAuth) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.opts.HTTPClient)
}

// AuthCodeURL builds the consent URL. It requests offline access and incremental authorization.
func (g *GoogleOAuth) AuthCodeURL(redirectURL, state string) string {
	return g.withRedirect(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for credentials.
func (g *GoogleOAuth) Exchange(ctx context.Context, redirectURL, code string) (*Credentials, error) {
	tok, err := g.withRedirect(redirectURL).Exchange(g.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", shared.ErrAuthFailed, err)
	}

	return &Credentials{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     g.config.Endpoint.TokenURL,
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		Scopes:       g.config.Scopes,
		Expiry:       tok.Expiry,
	}, nil
}

// TokenSource returns a refreshing token source for creds.
func (g *GoogleOAuth) TokenSource(ctx context.Context, creds *Credentials) oauth2.TokenSource {
	config := *g.config
	if creds.TokenURI != "" {
		config.Endpoint.TokenURL = creds.TokenURI
	}
	return config.TokenSource(g.clientContext(ctx), creds.OAuthToken())
}

// HTTPClient returns an HTTP client authorized by ts.
func (g *GoogleOAuth) HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(g.clientContext(ctx), ts)
}

// Revoke revokes token at Google. It reports true only when Google answers 200.
func (g *GoogleOAuth) Revoke(ctx context.Context, token string) (bool, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: revoke: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// OAuthCallback handles the redirect back from Google's consent screen.
// Implements the Handler interface for registration with a Router.
type OAuthCallback struct {
	oauth    *GoogleOAuth
	sessions *Sessions
	next     string
	logger   *log.Logger
}

// NewOAuthCallback creates the callback handler. On success the browser is redirected to next.
func NewOAuthCallback(oauth *GoogleOAuth, sessions *Sessions, next string, logger *log.Logger) *OAuthCallback {
	return &OAuthCallback{oauth: oauth, sessions: sessions, next: next, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthCallback) Routes() []string {
	return []string{"GET " + CallbackPath}
}

// ServeHTTP validates the state stored by the authorize step, exchanges the code and stores the credentials.
func (h *OAuthCallback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil || sess.OAuthState == "" {
		h.logger.Warn("oauth callback without pending authorization", "error", shared.ErrMissingState)
		http.Error(w, "Missing OAuth state, start at /authorize", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != sess.OAuthState {
		h.logger.Warn("oauth callback state mismatch", "error", shared.ErrInvalidState)
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("authorization failed",
			"error", r.URL.Query().Get("error"),
			"description", r.URL.Query().Get("error_description"),
		)
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	creds, err := h.oauth.Exchange(r.Context(), h.oauth.RedirectURL(r), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	sess.Credentials = creds
	sess.OAuthState = ""
	if err := h.sessions.Save(w, r, sess); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.next, http.StatusFound)
}
