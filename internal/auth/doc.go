// Package auth owns the stored Spotify credential and its lifecycle.
//
// # Credential Store
//
// [Store] is a single-record key-value store: one credential row per identity key,
// written with upsert semantics. [SQLiteStore] is the durable implementation; the
// process only ever uses [IdentityKey] since this is a single-user system.
//
// # Token Lifecycle
//
// [Manager] decides whether the stored access token is usable before every outbound
// API call. The credential is re-read from the store on every check rather than
// cached in memory, so interleaved dispatches never act on a stale token. A refresh
// happens at most once per EnsureValidToken or ForceRefresh call; a refresh that
// fails surfaces [shared.ErrNotAuthenticated] and the caller must re-run the
// bootstrap flow (maestro auth login).
package auth
