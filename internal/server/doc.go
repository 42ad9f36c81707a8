// Package server provides the loopback HTTP plumbing for the interactive
// Spotify authorization flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method filtering.
//
// # OAuth Callback Handler
//
// [CallbackHandler] implements the OAuth2 authorization code callback flow.
// It validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and delivers the result through a channel.
// Only the first callback is processed; replays get a 400.
//
// # Current Usage
//
// When the user runs `maestro auth login`, a temporary HTTP server starts on
// the configured redirect address, handles the callback, and shuts down after
// the token arrives.
package server
