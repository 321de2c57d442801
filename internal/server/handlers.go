package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/aggregator"
	"github.com/woozymasta/peermap/internal/vars"
)

// handlePeerLocations serves the current snapshot, building one on demand when the cache is cold.
func (s *Server) handlePeerLocations(w http.ResponseWriter, r *http.Request) {
	snap, err := s.locations.Snapshot(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
			log.Debug().Str("ip", GetRealIP(r, s.trustProxy)).Msg("Client went away before peer locations were ready")
			return
		case errors.Is(err, aggregator.ErrNoSnapshot), errors.Is(err, aggregator.ErrNoPeers):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "No peer locations available"})
		default:
			log.Error().Err(err).Msg("Failed to serve peer locations")
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Failed to fetch peer locations",
				Details: err.Error(),
			})
		}
		return
	}

	body, err := encodeJSON(newPeerLocationsResponse(snap))
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode peer locations")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to encode peer locations",
			Details: err.Error(),
		})
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// handleStatus reports snapshot freshness without triggering a refresh.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		LastUpdated:     timeOrNil(s.locations.LastUpdated()),
		RefreshInterval: s.locations.Interval().String(),
		CacheEntries:    s.locations.CacheEntries(),
	})
}

// handleFrontend serves the built front end with index.html as fallback for client-side routes,
// or redirects to the Vite dev server in dev mode.
func (s *Server) handleFrontend(w http.ResponseWriter, r *http.Request) {
	if s.devRedirect != "" {
		http.Redirect(w, r, s.devRedirect, http.StatusFound)
		return
	}

	if s.static == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}

	if _, err := fs.Stat(s.static, name); err != nil {
		http.ServeFileFS(w, r, s.static, "index.html")
		return
	}

	http.FileServerFS(s.static).ServeHTTP(w, r)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}

	return false
}

// encodeJSON marshals v without escaping the HTML carried by display fields.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := encodeJSON(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
