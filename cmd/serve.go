package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/maestro/internal/auth"
	"github.com/desertthunder/maestro/internal/dispatch"
	"github.com/desertthunder/maestro/internal/mcp"
	"github.com/desertthunder/maestro/internal/shared"
	"github.com/desertthunder/maestro/internal/spotify"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server exposing Spotify tools to agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "Transport to serve on: stdio or http",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address for the http transport",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the credential store, token manager, API client, and dispatcher
// together and runs the MCP server on the configured transport.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidConfig)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	manager := auth.NewManager(auth.ManagerOpts{
		Store:  store,
		Config: auth.OAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI),
		Logger: r.logger,
	})

	client := spotify.NewClient(spotify.ClientOpts{
		HTTPClient: r.httpClient,
		Tokens:     manager,
		Logger:     r.logger,
	})

	dispatcher := dispatch.NewDispatcher(client, r.logger)
	srv := mcp.NewServer(dispatcher, r.logger)

	transport := cmd.String("transport")
	if transport == "" {
		transport = r.config.MCP.Transport
	}
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.MCP.Addr
	}

	switch transport {
	case "", "stdio":
		return srv.ServeStdio(ctx)
	case "http":
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("%w: unknown transport %q (want stdio or http)", shared.ErrInvalidConfig, transport)
	}
}
