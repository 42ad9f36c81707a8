package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/maestro/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultExpiryMargin is how close to expiry a token may get before it is
	// refreshed preemptively. Covers clock skew between us and Spotify.
	DefaultExpiryMargin = 60 * time.Second
)

// Scopes are the Spotify permissions the bootstrap flow requests.
var Scopes = []string{
	"user-modify-playback-state",
	"user-read-playback-state",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// OAuthConfig builds the [oauth2.Config] for Spotify's authorization code flow.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// Manager owns the decision of whether the stored token is usable and performs
// the refresh grant when it is not. All outbound API calls obtain their bearer
// token through a Manager.
type Manager struct {
	store  Store
	config *oauth2.Config
	logger *log.Logger
	margin time.Duration
	now    func() time.Time
}

// ManagerOpts contains configuration options for creating a Manager.
type ManagerOpts struct {
	Store  Store
	Config *oauth2.Config
	Logger *log.Logger
	Margin time.Duration // defaults to DefaultExpiryMargin
}

// NewManager creates a new Manager with the provided store and OAuth config.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultExpiryMargin
	}

	return &Manager{
		store:  opts.Store,
		config: opts.Config,
		logger: opts.Logger,
		margin: opts.Margin,
		now:    time.Now,
	}
}

// EnsureValidToken returns a currently-valid access token, refreshing first if the
// stored token is expired or within the expiry margin.
//
// The credential record is read fresh from the store on every call; nothing is
// cached across invocations.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	creds, err := m.store.Get(ctx, IdentityKey)
	if err != nil {
		return "", err
	}

	if creds.Valid(m.now(), m.margin) {
		return creds.AccessToken, nil
	}

	m.logger.Debug("access token expired or near expiry, refreshing")
	return m.refresh(ctx, creds)
}

// ForceRefresh refreshes unconditionally, for callers that observed an
// authorization failure despite a token that appeared valid (clock skew,
// external revocation).
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	creds, err := m.store.Get(ctx, IdentityKey)
	if err != nil {
		return "", err
	}

	m.logger.Debug("forcing token refresh")
	return m.refresh(ctx, creds)
}

// refresh performs exactly one refresh-token grant and persists the result.
// If the response omits a rotated refresh token, the existing one is retained.
func (m *Manager) refresh(ctx context.Context, creds *Credentials) (string, error) {
	if creds.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token stored", shared.ErrNotAuthenticated)
	}

	src := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w: %v", shared.ErrNotAuthenticated, shared.ErrRefreshFailed, err)
	}

	creds.AccessToken = token.AccessToken
	creds.ExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		creds.RefreshToken = token.RefreshToken
	}

	if err := m.store.Upsert(ctx, creds); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.logger.Info("refreshed access token", "expires_at", creds.ExpiresAt)
	return creds.AccessToken, nil
}

// StaticToken is a fixed-token provider used during the bootstrap flow, before a
// credential record exists. It never refreshes.
type StaticToken string

func (s StaticToken) EnsureValidToken(ctx context.Context) (string, error) {
	return string(s), nil
}

func (s StaticToken) ForceRefresh(ctx context.Context) (string, error) {
	return "", fmt.Errorf("%w: static token cannot be refreshed", shared.ErrNotAuthenticated)
}
