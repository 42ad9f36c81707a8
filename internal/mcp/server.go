package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/maestro/internal/dispatch"
	"github.com/desertthunder/maestro/internal/shared"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "maestro"

// Version is stamped at build time.
var Version = "0.1.0"

// Server exposes the dispatcher over the Model Context Protocol.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger
	mcpServer  *sdk.Server
}

// NewServer creates an MCP server with the full tool catalogue registered.
func NewServer(dispatcher *dispatch.Dispatcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{
		dispatcher: dispatcher,
		logger:     logger,
		mcpServer: sdk.NewServer(&sdk.Implementation{
			Name:    serverName,
			Version: Version,
		}, nil),
	}

	s.registerTools()
	return s
}

// ServeStdio runs the server over stdin/stdout until the context is cancelled
// or the stream closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("serving over stdio")
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// ServeHTTP runs the server over streamable HTTP on the given address.
// /health answers liveness probes outside the protocol.
func (s *Server) ServeHTTP(addr string) error {
	mcpHandler := sdk.NewStreamableHTTPHandler(func(req *http.Request) *sdk.Server {
		return s.mcpServer
	}, nil)

	tracked := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = shared.GenerateID()
		}
		w.Header().Set("X-Request-ID", requestID)

		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "request_id", requestID)
		mcpHandler.ServeHTTP(w, r)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/mcp", tracked)
	mux.Handle("/mcp/", tracked)

	s.logger.Info("serving over http", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// textResult wraps a payload as a JSON text content block.
func textResult(payload any) (*sdk.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil
}

// errorResult renders a classified dispatcher failure so the agent sees the
// kind before the detail.
func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{
			&sdk.TextContent{Text: dispatch.Kind(err) + ": " + err.Error()},
		},
	}
}
