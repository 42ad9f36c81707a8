package mcp

import (
	"context"

	"github.com/desertthunder/maestro/internal/dispatch"
	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type searchSongsInput struct {
	Query string `json:"query" jsonschema:"Search query for songs (can include song name, artist, album, etc.)"`
}

type playSongInput struct {
	SongName   string `json:"song_name" jsonschema:"The name of the song to play"`
	ArtistName string `json:"artist_name,omitempty" jsonschema:"The name of the artist (optional, helps with search accuracy)"`
}

type controlPlaybackInput struct {
	Action string `json:"action"`
}

type emptyInput struct{}

type createPlaylistInput struct {
	PlaylistName string   `json:"playlist_name" jsonschema:"The name of the playlist to create"`
	Description  string   `json:"description,omitempty" jsonschema:"Optional description for the playlist"`
	Public       bool     `json:"public,omitempty" jsonschema:"Whether the playlist should be public (default: false)"`
	Songs        []string `json:"songs,omitempty" jsonschema:"Optional list of songs to add (format: 'Song Name by Artist' or just 'Song Name')"`
}

type addSongsInput struct {
	PlaylistName string   `json:"playlist_name" jsonschema:"The name of the existing playlist to add songs to"`
	Songs        []string `json:"songs" jsonschema:"List of songs to add (format: 'Song Name by Artist' or just 'Song Name')"`
}

// controlPlaybackSchema is written out by hand so the action enum reaches the
// agent; reflection over the input struct cannot express it.
var controlPlaybackSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"action": {
			Type:        "string",
			Description: "The playback action to perform",
			Enum:        []any{"play", "pause", "next", "previous"},
		},
	},
	Required: []string{"action"},
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "search_songs",
		Description: "Search for songs on Spotify without playing them. Returns a list of matching tracks.",
	}, s.handleSearchSongs)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "play_song",
		Description: "Search for a song and play it on Spotify. Provide song name and optionally artist name.",
	}, s.handlePlaySong)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "control_playback",
		Description: "Control Spotify playback with basic commands.",
		InputSchema: controlPlaybackSchema,
	}, s.handleControlPlayback)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_current_song",
		Description: "Get information about the currently playing song on Spotify.",
	}, s.handleGetCurrentSong)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_devices",
		Description: "Get list of available Spotify devices to help troubleshoot playback issues.",
	}, s.handleGetDevices)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "create_playlist",
		Description: "Create a new Spotify playlist with optional songs.",
	}, s.handleCreatePlaylist)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "add_songs_to_playlist",
		Description: "Add songs to an existing playlist by searching for them.",
	}, s.handleAddSongs)
}

func (s *Server) handleSearchSongs(ctx context.Context, req *sdk.CallToolRequest, input searchSongsInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.SearchSongs(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handlePlaySong(ctx context.Context, req *sdk.CallToolRequest, input playSongInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.PlaySong(ctx, input.SongName, input.ArtistName)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handleControlPlayback(ctx context.Context, req *sdk.CallToolRequest, input controlPlaybackInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.ControlPlayback(ctx, input.Action)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handleGetCurrentSong(ctx context.Context, req *sdk.CallToolRequest, input emptyInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.GetCurrentSong(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handleGetDevices(ctx context.Context, req *sdk.CallToolRequest, input emptyInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.GetDevices(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handleCreatePlaylist(ctx context.Context, req *sdk.CallToolRequest, input createPlaylistInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.CreatePlaylist(ctx, dispatch.CreatePlaylistArgs{
		Name:        input.PlaylistName,
		Description: input.Description,
		Public:      input.Public,
		Songs:       input.Songs,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}

func (s *Server) handleAddSongs(ctx context.Context, req *sdk.CallToolRequest, input addSongsInput) (*sdk.CallToolResult, any, error) {
	result, err := s.dispatcher.AddSongsToPlaylist(ctx, input.PlaylistName, input.Songs)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res, err := textResult(result)
	return res, nil, err
}
