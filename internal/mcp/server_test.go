package mcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/maestro/internal/dispatch"
	"github.com/desertthunder/maestro/internal/shared"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func textOf(t *testing.T, result *sdk.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(result.Content))
	}
	tc, ok := result.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return tc.Text
}

func TestResultHelpers(t *testing.T) {
	t.Run("textResult Marshals Payload", func(t *testing.T) {
		result, err := textResult(dispatch.ControlResult{Action: "pause"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.IsError {
			t.Error("expected success result")
		}
		if got := textOf(t, result); got != `{"action":"pause"}` {
			t.Errorf("unexpected payload %s", got)
		}
	})

	t.Run("errorResult Leads With Kind", func(t *testing.T) {
		err := fmt.Errorf("%w: open Spotify on a device", shared.ErrNoActiveDevice)
		result := errorResult(err)

		if !result.IsError {
			t.Fatal("expected error result")
		}
		got := textOf(t, result)
		if !strings.HasPrefix(got, dispatch.KindNoActiveDevice+": ") {
			t.Errorf("expected kind prefix, got %s", got)
		}
	})
}

func TestToolHandlers(t *testing.T) {
	// A dispatcher with no API is safe for argument-validation paths, which
	// reject before any network call.
	srv := NewServer(dispatch.NewDispatcher(nil, shared.NewLogger(io.Discard)), shared.NewLogger(io.Discard))
	ctx := context.Background()

	t.Run("Invalid Action Is An Error Result", func(t *testing.T) {
		result, _, err := srv.handleControlPlayback(ctx, nil, controlPlaybackInput{Action: "rewind"})
		if err != nil {
			t.Fatalf("validation failures must be tool results, got protocol error %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
		if !strings.HasPrefix(textOf(t, result), dispatch.KindInvalidArgument) {
			t.Errorf("expected invalid_argument kind, got %s", textOf(t, result))
		}
	})

	t.Run("Missing Query Is An Error Result", func(t *testing.T) {
		result, _, err := srv.handleSearchSongs(ctx, nil, searchSongsInput{})
		if err != nil {
			t.Fatalf("expected tool result, got protocol error %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
	})

	t.Run("Missing Playlist Name Is An Error Result", func(t *testing.T) {
		result, _, err := srv.handleAddSongs(ctx, nil, addSongsInput{Songs: []string{"x"}})
		if err != nil {
			t.Fatalf("expected tool result, got protocol error %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
	})
}

func TestControlPlaybackSchema(t *testing.T) {
	prop, ok := controlPlaybackSchema.Properties["action"]
	if !ok {
		t.Fatal("expected action property")
	}
	if len(prop.Enum) != 4 {
		t.Errorf("expected four actions, got %v", prop.Enum)
	}
	if len(controlPlaybackSchema.Required) != 1 || controlPlaybackSchema.Required[0] != "action" {
		t.Errorf("expected action required, got %v", controlPlaybackSchema.Required)
	}
}
