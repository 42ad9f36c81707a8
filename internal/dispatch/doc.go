// Package dispatch maps the fixed catalogue of agent operations onto sequences
// of Spotify API calls.
//
// Each operation validates its arguments before any network call, composes one
// or more calls through the [API] interface, and reduces the results into a
// single structured payload or a classified error. Multi-step operations
// (create_playlist, add_songs_to_playlist) complete the calls they can and
// report per-item resolution failures alongside the overall success instead of
// aborting.
//
// Transient failures (rate-limited, server-error) are retried at most once and
// only for idempotent reads; playback-mutating calls are never retried to avoid
// duplicate side effects such as a double skip.
package dispatch
