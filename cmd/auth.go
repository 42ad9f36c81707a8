package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/maestro/internal/auth"
	"github.com/desertthunder/maestro/internal/server"
	"github.com/desertthunder/maestro/internal/shared"
	"github.com/desertthunder/maestro/internal/spotify"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify and store tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential and its expiry",
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, and persists the credential record.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidConfig)
	}

	oauthConfig := auth.OAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)

	token, err := r.doOAuth(ctx, oauthConfig)
	if err != nil {
		return err
	}

	// The profile call identifies which Spotify account the grant belongs to.
	client := spotify.NewClient(spotify.ClientOpts{
		HTTPClient: r.httpClient,
		Tokens:     auth.StaticToken(token.AccessToken),
		Logger:     r.logger,
	})

	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch Spotify profile: %w", err)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	record := &auth.Credentials{
		IdentityKey:   auth.IdentityKey,
		SpotifyUserID: user.ID,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		ExpiresAt:     token.Expiry,
		Scope:         strings.Join(auth.Scopes, " "),
	}

	if err := store.Upsert(ctx, record); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Logged in as %s\n", user.ID)
	r.writePlain("You can now run: maestro serve\n")
	return nil
}

// AuthStatus reports whether a credential is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	record, err := store.Get(ctx, auth.IdentityKey)
	if err != nil {
		r.writePlain("✗ Not authenticated\n")
		r.writePlain("Run 'maestro auth login' to connect your Spotify account.\n")
		return nil
	}

	r.writePlain("✓ Authenticated as %s\n", record.SpotifyUserID)
	if record.Valid(time.Now(), auth.DefaultExpiryMargin) {
		r.writePlain("Access token valid until %s\n", record.ExpiresAt.Format(time.RFC3339))
	} else {
		r.writePlain("Access token expired at %s (will refresh on next use)\n", record.ExpiresAt.Format(time.RFC3339))
	}
	r.writePlain("Scope: %s\n", record.Scope)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
func (r *Runner) doOAuth(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state)
	callbackPath := "/callback"
	if u, err := url.Parse(oauthConfig.RedirectURL); err == nil && u.Path != "" {
		callbackPath = u.Path
	}

	callbackHandler := server.NewCallbackHandler(oauthConfig, state, callbackPath)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(callbackHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-callbackHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	if result.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: authorization response had no refresh token", shared.ErrMissingCredentials)
	}

	return result.Token, nil
}
