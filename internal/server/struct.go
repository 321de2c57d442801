package server

import (
	"context"
	"io/fs"
	"sync"
	"time"

	"github.com/woozymasta/peermap/internal/models"
)

// Locations is the snapshot source behind the HTTP surface.
type Locations interface {
	// Snapshot returns the published snapshot, refreshing on demand when cold.
	Snapshot(ctx context.Context) (models.Snapshot, error)

	// LastUpdated returns the time of the last published snapshot, zero if none.
	LastUpdated() time.Time

	// Interval returns the refresh period.
	Interval() time.Duration

	// CacheEntries returns the number of entries in the shared cache.
	CacheEntries() int
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests.
type Server struct {
	// locations provides the peer-location snapshot served by /peer-locations.
	locations Locations

	// static serves the built front end. It is nil when static serving is disabled.
	static fs.FS

	// done is closed by Close to stop background cleanup routines.
	done chan struct{}

	closeOnce sync.Once

	// devRedirect is the Vite dev server URL that front end requests are redirected to.
	// Empty outside dev mode.
	devRedirect string

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration. Zero disables the limit.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// PeerRecordView is the display shape of one record. Two-line fields carry
// the primary value and a lighter secondary annotation as HTML.
type PeerRecordView struct {
	IP          string    `json:"ip"`
	DNSHostname string    `json:"dnsHostname"`
	UserAgent   string    `json:"userAgent"`
	BlockHeight string    `json:"blockHeight"`
	Location    []float64 `json:"location"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	Org         string    `json:"org"`
	DNS         string    `json:"dns"`
}

// peerLocationsResponse is the body of GET /peer-locations.
type peerLocationsResponse struct {
	LastUpdated *time.Time       `json:"lastUpdated"`
	Locations   []PeerRecordView `json:"locations"`
}

// errorResponse is the body of failed API requests.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	LastUpdated     *time.Time `json:"lastUpdated"`
	RefreshInterval string     `json:"refreshInterval"`
	CacheEntries    int        `json:"cacheEntries"`
}
