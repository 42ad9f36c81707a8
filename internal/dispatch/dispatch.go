package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/maestro/internal/shared"
	"github.com/desertthunder/maestro/internal/spotify"
)

// searchLimit matches how many ranked results search_songs returns.
const searchLimit = 5

// maxRetryDelay caps how long a rate-limit hint can stall a read retry.
const maxRetryDelay = 5 * time.Second

// API defines the Spotify operations the dispatcher composes.
// [spotify.Client] is the production implementation.
type API interface {
	Me(ctx context.Context) (*spotify.User, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
	PlaybackState(ctx context.Context) (*spotify.PlaybackState, error)
	Devices(ctx context.Context) ([]spotify.Device, error)
	Play(ctx context.Context, uris []string) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	UserPlaylists(ctx context.Context) ([]spotify.Playlist, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*spotify.Playlist, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// Dispatcher executes one logical user intent as an ordered sequence of API calls.
type Dispatcher struct {
	api    API
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a new Dispatcher backed by the given API.
func NewDispatcher(api API, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Dispatcher{
		api:    api,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TrackSummary is the agent-facing shape of one track.
type TrackSummary struct {
	Name    string `json:"name"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
	URI     string `json:"uri"`
}

func summarize(t spotify.Track) TrackSummary {
	return TrackSummary{
		Name:    t.Name,
		Artists: t.ArtistNames(),
		Album:   t.Album.Name,
		URI:     t.URI,
	}
}

// SearchResult is the payload of search_songs.
type SearchResult struct {
	Query  string         `json:"query"`
	Tracks []TrackSummary `json:"tracks"`
}

// PlayResult is the payload of play_song.
type PlayResult struct {
	Track TrackSummary `json:"track"`
}

// ControlResult is the payload of control_playback.
type ControlResult struct {
	Action string `json:"action"`
}

// NowPlaying is the payload of get_current_song. Track is nil and Playing false
// when nothing is playing, which is distinct from an error.
type NowPlaying struct {
	Playing    bool          `json:"playing"`
	Track      *TrackSummary `json:"track,omitempty"`
	ProgressMS int           `json:"progress_ms,omitempty"`
	DurationMS int           `json:"duration_ms,omitempty"`
}

// DeviceInfo is the agent-facing shape of one playback device.
type DeviceInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Active        bool   `json:"active"`
	VolumePercent int    `json:"volume_percent"`
}

// DevicesResult is the payload of get_devices.
type DevicesResult struct {
	Devices     []DeviceInfo `json:"devices"`
	ActiveCount int          `json:"active_count"`
}

// PlaylistResult is the payload of create_playlist and add_songs_to_playlist.
// Unresolved lists the requested song titles that no search result matched.
type PlaylistResult struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	URL        string         `json:"url,omitempty"`
	Added      []TrackSummary `json:"added"`
	Unresolved []string       `json:"unresolved,omitempty"`
}

// SearchSongs runs one track search and returns the ranked results. No playback
// side effect, so a transient failure is retried once.
func (d *Dispatcher) SearchSongs(ctx context.Context, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	tracks, err := retryRead(ctx, d, func(ctx context.Context) ([]spotify.Track, error) {
		return d.api.SearchTracks(ctx, query, searchLimit)
	})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query, Tracks: make([]TrackSummary, 0, len(tracks))}
	for _, t := range tracks {
		result.Tracks = append(result.Tracks, summarize(t))
	}
	return result, nil
}

// PlaySong resolves a track by name (optionally narrowed by artist) and starts
// playback on the active device.
func (d *Dispatcher) PlaySong(ctx context.Context, songName, artistName string) (*PlayResult, error) {
	if strings.TrimSpace(songName) == "" {
		return nil, fmt.Errorf("%w: song_name", shared.ErrMissingArgument)
	}

	query := fmt.Sprintf("track:%s", songName)
	if artistName != "" {
		query = fmt.Sprintf("track:%s artist:%s", songName, artistName)
	}

	tracks, err := retryRead(ctx, d, func(ctx context.Context) ([]spotify.Track, error) {
		return d.api.SearchTracks(ctx, query, searchLimit)
	})
	if err != nil {
		return nil, err
	}

	if len(tracks) == 0 {
		if artistName != "" {
			return nil, fmt.Errorf("%w: no songs found for %q by %q", shared.ErrNotFound, songName, artistName)
		}
		return nil, fmt.Errorf("%w: no songs found for %q", shared.ErrNotFound, songName)
	}

	track := pickTrack(tracks, artistName)

	d.logger.Info("starting playback", "track", track.Name, "artists", track.ArtistNames())
	if err := d.api.Play(ctx, []string{track.URI}); err != nil {
		return nil, d.describeDeviceFailure(ctx, err)
	}

	return &PlayResult{Track: summarize(track)}, nil
}

// describeDeviceFailure enriches a no-active-device failure with a device
// listing so the agent can tell "nothing open" from "open but idle". The
// listing itself is best effort.
func (d *Dispatcher) describeDeviceFailure(ctx context.Context, err error) error {
	if !errors.Is(err, shared.ErrNoActiveDevice) {
		return err
	}

	devices, derr := d.api.Devices(ctx)
	if derr != nil {
		return err
	}

	if len(devices) == 0 {
		return fmt.Errorf("%w: no Spotify devices found, open Spotify on a device first", shared.ErrNoActiveDevice)
	}

	names := make([]string, 0, len(devices))
	for _, dev := range devices {
		names = append(names, dev.Name)
	}
	return fmt.Errorf("%w: no active device, available: %s", shared.ErrNoActiveDevice, strings.Join(names, ", "))
}

// pickTrack selects the first result, preferring one whose artist name contains
// the requested artist as a case-insensitive substring.
func pickTrack(tracks []spotify.Track, artistName string) spotify.Track {
	if artistName == "" {
		return tracks[0]
	}

	needle := strings.ToLower(artistName)
	for _, t := range tracks {
		for _, a := range t.Artists {
			if strings.Contains(strings.ToLower(a.Name), needle) {
				return t
			}
		}
	}
	return tracks[0]
}

var playbackActions = map[string]struct{}{
	"play": {}, "pause": {}, "next": {}, "previous": {},
}

// ControlPlayback performs one playback-control action on the active device.
// Never retried: a repeated skip would be a duplicate side effect.
func (d *Dispatcher) ControlPlayback(ctx context.Context, action string) (*ControlResult, error) {
	if _, ok := playbackActions[action]; !ok {
		return nil, fmt.Errorf("%w: action must be one of play, pause, next, previous", shared.ErrInvalidArgument)
	}

	var err error
	switch action {
	case "play":
		err = d.api.Play(ctx, nil)
	case "pause":
		err = d.api.Pause(ctx)
	case "next":
		err = d.api.Next(ctx)
	case "previous":
		err = d.api.Previous(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &ControlResult{Action: action}, nil
}

// GetCurrentSong reads the playback state. A "nothing playing" answer is a
// successful payload, not an error.
func (d *Dispatcher) GetCurrentSong(ctx context.Context) (*NowPlaying, error) {
	state, err := retryRead(ctx, d, func(ctx context.Context) (*spotify.PlaybackState, error) {
		return d.api.PlaybackState(ctx)
	})
	if err != nil {
		return nil, err
	}

	if state == nil || state.Item == nil {
		return &NowPlaying{Playing: false}, nil
	}

	track := summarize(*state.Item)
	return &NowPlaying{
		Playing:    state.IsPlaying,
		Track:      &track,
		ProgressMS: state.ProgressMS,
		DurationMS: state.Item.DurationMS,
	}, nil
}

// GetDevices lists the user's playback devices with their active flags.
func (d *Dispatcher) GetDevices(ctx context.Context) (*DevicesResult, error) {
	devices, err := retryRead(ctx, d, func(ctx context.Context) ([]spotify.Device, error) {
		return d.api.Devices(ctx)
	})
	if err != nil {
		return nil, err
	}

	result := &DevicesResult{Devices: make([]DeviceInfo, 0, len(devices))}
	for _, dev := range devices {
		result.Devices = append(result.Devices, DeviceInfo{
			Name:          dev.Name,
			Type:          dev.Type,
			Active:        dev.IsActive,
			VolumePercent: dev.VolumePercent,
		})
		if dev.IsActive {
			result.ActiveCount++
		}
	}
	return result, nil
}

// CreatePlaylistArgs are the arguments of create_playlist.
type CreatePlaylistArgs struct {
	Name        string
	Description string
	Public      bool
	Songs       []string
}

// CreatePlaylist creates a playlist and best-effort resolves and adds the
// requested songs. Unresolved titles are skipped and reported, not fatal.
func (d *Dispatcher) CreatePlaylist(ctx context.Context, args CreatePlaylistArgs) (*PlaylistResult, error) {
	if strings.TrimSpace(args.Name) == "" {
		return nil, fmt.Errorf("%w: playlist_name", shared.ErrMissingArgument)
	}

	user, err := d.api.Me(ctx)
	if err != nil {
		return nil, err
	}

	playlist, err := d.api.CreatePlaylist(ctx, user.ID, args.Name, args.Description, args.Public)
	if err != nil {
		return nil, err
	}

	result := &PlaylistResult{
		ID:   playlist.ID,
		Name: playlist.Name,
		URL:  playlist.ExternalURLs.Spotify,
	}

	if len(args.Songs) == 0 {
		return result, nil
	}

	result.Added, result.Unresolved = d.resolveSongs(ctx, args.Songs)

	if len(result.Added) > 0 {
		uris := make([]string, 0, len(result.Added))
		for _, t := range result.Added {
			uris = append(uris, t.URI)
		}
		if err := d.api.AddTracks(ctx, playlist.ID, uris); err != nil {
			return nil, fmt.Errorf("playlist created but adding tracks failed: %w", err)
		}
	}

	return result, nil
}

// AddSongsToPlaylist resolves an existing playlist by exact name and adds the
// requested songs in one batched call.
//
// Duplicate playlist names are not disambiguated; the first match wins.
func (d *Dispatcher) AddSongsToPlaylist(ctx context.Context, playlistName string, songs []string) (*PlaylistResult, error) {
	if strings.TrimSpace(playlistName) == "" {
		return nil, fmt.Errorf("%w: playlist_name", shared.ErrMissingArgument)
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: songs", shared.ErrMissingArgument)
	}

	playlists, err := retryRead(ctx, d, func(ctx context.Context) ([]spotify.Playlist, error) {
		return d.api.UserPlaylists(ctx)
	})
	if err != nil {
		return nil, err
	}

	var target *spotify.Playlist
	for i, pl := range playlists {
		if strings.EqualFold(pl.Name, playlistName) {
			target = &playlists[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: no playlist named %q in your library", shared.ErrNotFound, playlistName)
	}

	result := &PlaylistResult{
		ID:   target.ID,
		Name: target.Name,
		URL:  target.ExternalURLs.Spotify,
	}

	result.Added, result.Unresolved = d.resolveSongs(ctx, songs)

	if len(result.Added) == 0 {
		return nil, fmt.Errorf("%w: none of the requested songs were found", shared.ErrNotFound)
	}

	uris := make([]string, 0, len(result.Added))
	for _, t := range result.Added {
		uris = append(uris, t.URI)
	}
	if err := d.api.AddTracks(ctx, target.ID, uris); err != nil {
		return nil, err
	}

	return result, nil
}

// resolveSongs searches each requested title and keeps the top match.
// Failures and empty results land in unresolved; resolution never aborts the
// whole operation.
func (d *Dispatcher) resolveSongs(ctx context.Context, songs []string) (added []TrackSummary, unresolved []string) {
	for _, song := range songs {
		tracks, err := d.api.SearchTracks(ctx, song, 1)
		if err != nil || len(tracks) == 0 {
			if err != nil {
				d.logger.Warn("song resolution failed", "song", song, "error", err)
			}
			unresolved = append(unresolved, song)
			continue
		}
		added = append(added, summarize(tracks[0]))
	}
	return added, unresolved
}

// retryRead runs an idempotent read, retrying once after a bounded delay when
// the failure is transient. The dispatcher's sleep hook keeps tests from
// waiting in real time.
func retryRead[T any](ctx context.Context, d *Dispatcher, fn func(ctx context.Context) (T, error)) (T, error) {
	value, err := fn(ctx)
	if err == nil {
		return value, nil
	}

	var apiErr *spotify.APIError
	if !errors.As(err, &apiErr) || !apiErr.Retryable() {
		return value, err
	}

	delay := apiErr.RetryAfter
	if delay <= 0 {
		delay = time.Second
	}
	if delay > maxRetryDelay {
		return value, err
	}

	d.logger.Warn("transient read failure, retrying once", "delay", delay, "error", err)
	if serr := d.sleep(ctx, delay); serr != nil {
		return value, err
	}

	return fn(ctx)
}
