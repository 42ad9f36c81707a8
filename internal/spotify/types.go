// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import "strings"

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// ExternalURLs holds public web links for a Spotify resource.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Track represents a Spotify track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	URI          string       `json:"uri"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// ArtistNames joins the track's artist names for display.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

type searchTracks struct {
	Items []Track `json:"items"`
	Total int     `json:"total"`
}

// SearchResults represents a track search response.
type SearchResults struct {
	Tracks searchTracks `json:"tracks"`
}

// Device represents a Spotify playback device.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

// DeviceList represents the /me/player/devices response.
type DeviceList struct {
	Devices []Device `json:"devices"`
}

// PlaybackState represents the current playback context.
//
// Item is nil when nothing is queued; the API returns 204 with no body when
// there is no playback session at all.
type PlaybackState struct {
	IsPlaying  bool    `json:"is_playing"`
	ProgressMS int     `json:"progress_ms"`
	Item       *Track  `json:"item"`
	Device     *Device `json:"device"`
}

// User represents the authenticated user's profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Public       bool           `json:"public"`
	Tracks       playlistTracks `json:"tracks"`
	ExternalURLs ExternalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// PaginatedPlaylists represents a paginated response of the user's playlists.
type PaginatedPlaylists struct {
	Items  []Playlist `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Next   *string    `json:"next"`
}
