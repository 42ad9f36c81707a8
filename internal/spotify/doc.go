// Package spotify wraps authenticated calls to the Spotify Web API.
//
// # Classified Responses
//
// [Client.Do] executes one HTTP call and classifies the status code into an
// [Outcome]: success, token-expired, forbidden, not-found, rate-limited, or
// server-error. Transport failures and timeouts classify as server-error.
//
// # Retry Policy
//
// On token-expired the client forces one refresh through its [TokenProvider] and
// reissues the same request exactly once. A second token-expired response is
// escalated to [shared.ErrNotAuthenticated]. Rate-limited and server-error
// outcomes are never retried here; that policy belongs to the dispatch layer,
// which only retries idempotent reads.
//
// # Endpoint Helpers
//
// The typed helpers in api.go (search, playback, devices, playlists) decode
// response bodies into the structs in types.go and translate non-success
// outcomes into [*APIError] values wrapping the shared sentinel errors.
// Playback-control endpoints map forbidden to [shared.ErrPremiumRequired] and
// not-found to [shared.ErrNoActiveDevice], matching what those statuses mean on
// /me/player routes.
package spotify
