// Package aggregator builds the peer-location snapshot from the daemon's peer
// list, enriches every address with geolocation and reverse DNS, and keeps the
// snapshot fresh on a timer.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/daemon"
	"github.com/woozymasta/peermap/internal/geoip"
	"github.com/woozymasta/peermap/internal/models"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=mocks/daemon.go -package=mocks . Daemon

var (
	// ErrNoPeers is returned when a cycle is abandoned because the daemon reported no peers.
	ErrNoPeers = errors.New("no peer information available")

	// ErrNoSnapshot is returned when no snapshot could be served.
	ErrNoSnapshot = errors.New("no peer locations available")
)

// Daemon provides the node information of one cycle. Implementations degrade
// failures to empty values.
type Daemon interface {
	PeerInfo(ctx context.Context) []daemon.PeerInfo
	NetworkInfo(ctx context.Context) daemon.NetworkInfo
	MiningInfo(ctx context.Context) daemon.MiningInfo
}

// GeoResolver maps an IP to geolocation; false means unknown.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (geoip.Info, bool)
}

// DNSResolver maps an IP to a hostname; "" means unknown.
type DNSResolver interface {
	Resolve(ctx context.Context, ip string) string
}

// Options tunes the service.
type Options struct {
	// Interval between scheduled refreshes.
	Interval time.Duration

	// Concurrency bounds the number of addresses enriched at once.
	Concurrency int
}

// Service owns the snapshot: it is the only writer of cache.SnapshotKey.
type Service struct {
	ctx         context.Context
	daemon      Daemon
	geo         GeoResolver
	dns         DNSResolver
	store       *cache.Store
	now         func() time.Time
	cancel      context.CancelFunc
	lastUpdated atomic.Pointer[time.Time]
	refresh     singleflight.Group
	wg          sync.WaitGroup
	started     atomic.Bool
	interval    time.Duration
	concurrency int
}

// New creates a service. Nothing runs until Start or Snapshot is called.
func New(d Daemon, geo GeoResolver, dns DNSResolver, store *cache.Store, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		ctx:         ctx,
		cancel:      cancel,
		daemon:      d,
		geo:         geo,
		dns:         dns,
		store:       store,
		now:         time.Now,
		interval:    opts.Interval,
		concurrency: opts.Concurrency,
	}
}

// Start runs one refresh immediately and then one per interval until Stop.
func (s *Service) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go s.run()
}

// Stop cancels in-flight work and waits for the scheduler to exit.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Interval returns the refresh period.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// LastUpdated returns the time of the last published snapshot, zero if none.
func (s *Service) LastUpdated() time.Time {
	if t := s.lastUpdated.Load(); t != nil {
		return *t
	}

	return time.Time{}
}

// CacheEntries returns the number of entries in the shared cache.
func (s *Service) CacheEntries() int {
	return s.store.ItemCount()
}

// Cached returns the published snapshot without triggering a refresh.
func (s *Service) Cached() (models.Snapshot, bool) {
	return cache.Lookup[models.Snapshot](s.store, cache.SnapshotKey)
}

// Snapshot returns the published snapshot. When the cache holds none it runs
// one refresh on demand; concurrent callers share that refresh.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if snap, ok := s.Cached(); ok {
		return snap, nil
	}

	log.Info().Msg("Peer locations not cached, refreshing on demand")

	var err error
	select {
	case res := <-s.refresh.DoChan("refresh", s.doRefresh):
		err = res.Err
	case <-ctx.Done():
		return models.Snapshot{}, ctx.Err()
	}

	if snap, ok := s.Cached(); ok {
		return snap, nil
	}
	if err != nil {
		return models.Snapshot{}, err
	}

	return models.Snapshot{}, ErrNoSnapshot
}

func (s *Service) run() {
	defer s.wg.Done()

	s.scheduledRefresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.scheduledRefresh()
		}
	}
}

func (s *Service) scheduledRefresh() {
	_, err, shared := s.refresh.Do("refresh", s.doRefresh)
	if err != nil && !errors.Is(err, ErrNoPeers) && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Bool("shared", shared).Msg("Failed to update peer locations")
	}
}

func (s *Service) doRefresh() (any, error) {
	return nil, s.UpdatePeerLocations(s.ctx)
}
