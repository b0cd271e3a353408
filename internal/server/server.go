// Package server exposes the REST API, the progress WebSocket, and the MCP
// endpoint for the regulatory analysis engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/regradar/internal/app"
	"github.com/bobmcallan/regradar/internal/common"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app    *app.App
	server *http.Server
	logger *common.Logger
}

// NewServer creates a new HTTP server serving the REST API, the progress
// WebSocket, and MCP over streamable HTTP.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	apiMux := http.NewServeMux()
	s.registerRoutes(apiMux)

	// The WebSocket endpoint bypasses the middleware stack: the logging
	// wrapper does not implement http.Hijacker, which the upgrade needs.
	root := http.NewServeMux()
	root.HandleFunc("/ws/progress", a.AnalysisManager.Hub().ServeWS)
	root.Handle("/mcp", mcpserver.NewStreamableHTTPServer(a.MCPServer,
		mcpserver.WithStateLess(true),
	))
	root.Handle("/", applyMiddleware(apiMux, a.Logger))

	host := a.Config.Server.Host
	port := a.Config.Server.Port

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
