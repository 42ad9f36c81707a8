package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/maestro/internal/shared"
)

// APIError is a classified API failure. It wraps one of the shared sentinel
// errors so callers can test with [errors.Is] while still reaching the
// rate-limit hint with [errors.As].
type APIError struct {
	StatusCode int
	Outcome    Outcome
	RetryAfter time.Duration
	Kind       error
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() error { return e.Kind }

// Retryable reports whether the failure is transient (rate-limited or
// server-error). Only idempotent read operations should act on this.
func (e *APIError) Retryable() bool {
	return e.Outcome == OutcomeRateLimited || e.Outcome == OutcomeServerError
}

// apiError maps a non-success response into an [*APIError] with generic semantics.
func apiError(resp *Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Outcome: resp.Outcome, RetryAfter: resp.RetryAfter}

	switch resp.Outcome {
	case OutcomeNotFound:
		e.Kind = shared.ErrNotFound
	case OutcomeRateLimited:
		e.Kind = shared.ErrRateLimited
		if resp.RetryAfter > 0 {
			e.Detail = fmt.Sprintf("retry after %s", resp.RetryAfter)
		}
	default:
		e.Kind = shared.ErrUpstream
		if resp.Err != nil {
			e.Detail = resp.Err.Error()
		} else {
			e.Detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
	}

	return e
}

// playbackError maps non-success playback-control responses, where forbidden
// means the account lacks Premium and not-found means no active device.
func playbackError(resp *Response) *APIError {
	switch resp.Outcome {
	case OutcomeForbidden:
		return &APIError{
			StatusCode: resp.StatusCode,
			Outcome:    resp.Outcome,
			Kind:       shared.ErrPremiumRequired,
			Detail:     "playback control requires a Spotify Premium account",
		}
	case OutcomeNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Outcome:    resp.Outcome,
			Kind:       shared.ErrNoActiveDevice,
			Detail:     "open Spotify on a device and start playback first",
		}
	default:
		return apiError(resp)
	}
}

// Me retrieves the current authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/me"})
	if err != nil {
		return nil, err
	}
	if resp.Outcome != OutcomeSuccess {
		return nil, apiError(resp)
	}

	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchTracks searches for tracks matching the query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/search", Query: q})
	if err != nil {
		return nil, err
	}
	if resp.Outcome != OutcomeSuccess {
		return nil, apiError(resp)
	}

	var results SearchResults
	if err := resp.Decode(&results); err != nil {
		return nil, err
	}
	return results.Tracks.Items, nil
}

// PlaybackState retrieves the current playback context.
//
// Returns (nil, nil) when nothing is playing; the API answers 204 with an
// empty body in that case.
func (c *Client) PlaybackState(ctx context.Context) (*PlaybackState, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/me/player"})
	if err != nil {
		return nil, err
	}
	if resp.Outcome != OutcomeSuccess {
		return nil, apiError(resp)
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}

	var state PlaybackState
	if err := resp.Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Devices lists the user's available playback devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/me/player/devices"})
	if err != nil {
		return nil, err
	}
	if resp.Outcome != OutcomeSuccess {
		return nil, apiError(resp)
	}

	var list DeviceList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	return list.Devices, nil
}

// Play starts playback of the given track URIs on the active device.
// With no URIs it resumes the current context.
func (c *Client) Play(ctx context.Context, uris []string) error {
	req := Request{Method: http.MethodPut, Path: "/me/player/play"}
	if len(uris) > 0 {
		req.Body = map[string]any{"uris": uris}
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Outcome != OutcomeSuccess {
		return playbackError(resp)
	}
	return nil
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context) error {
	return c.control(ctx, http.MethodPut, "/me/player/pause")
}

// Next skips to the next track on the active device.
func (c *Client) Next(ctx context.Context) error {
	return c.control(ctx, http.MethodPost, "/me/player/next")
}

// Previous skips to the previous track on the active device.
func (c *Client) Previous(ctx context.Context) error {
	return c.control(ctx, http.MethodPost, "/me/player/previous")
}

func (c *Client) control(ctx context.Context, method, path string) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path})
	if err != nil {
		return err
	}
	if resp.Outcome != OutcomeSuccess {
		return playbackError(resp)
	}
	return nil
}

// UserPlaylists retrieves all of the current user's playlists, following pagination.
func (c *Client) UserPlaylists(ctx context.Context) ([]Playlist, error) {
	var all []Playlist
	limit := 50
	offset := 0

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))

		resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/me/playlists", Query: q})
		if err != nil {
			return nil, err
		}
		if resp.Outcome != OutcomeSuccess {
			return nil, apiError(resp)
		}

		var page PaginatedPlaylists
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// CreatePlaylist creates a playlist owned by the given user.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID)),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if resp.Outcome != OutcomeSuccess {
		return nil, apiError(resp)
	}

	var playlist Playlist
	if err := resp.Decode(&playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends track URIs to an existing playlist in one batched call.
func (c *Client) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrInvalidArgument)
	}

	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID)),
		Body:   map[string]any{"uris": uris},
	})
	if err != nil {
		return err
	}
	if resp.Outcome != OutcomeSuccess {
		return apiError(resp)
	}
	return nil
}
