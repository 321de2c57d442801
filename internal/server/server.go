// Package server implements the HTTP server, middleware, and request handlers for the application.
package server

import (
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/config"
)

// New creates a new Server serving snapshots from locations.
func New(locations Locations, cfg *config.Config) *Server {
	s := &Server{
		locations:      locations,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		done:           make(chan struct{}),
	}

	switch {
	case cfg.Server.DevMode:
		s.devRedirect = "http://localhost:" + strconv.Itoa(cfg.Server.VitePort) + "/"
		log.Info().Int("port", cfg.Server.VitePort).Msg("Running in development mode, front end served by Vite")
	case cfg.Server.StaticDir != "":
		if info, err := os.Stat(cfg.Server.StaticDir); err != nil || !info.IsDir() {
			log.Warn().Str("path", cfg.Server.StaticDir).Msg("Static directory not found, front end disabled")
		} else {
			s.static = os.DirFS(cfg.Server.StaticDir)
		}
	}

	return s
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /peer-locations", s.RateLimitMiddleware(http.HandlerFunc(s.handlePeerLocations)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))
	mux.Handle("GET /api/status", http.HandlerFunc(s.handleStatus))
	mux.Handle("GET /", http.HandlerFunc(s.handleFrontend))

	return s.LoggingMiddleware(mux)
}

// Close stops background routines started by the middleware.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
