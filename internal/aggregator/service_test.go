package aggregator_test

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/peermap/internal/aggregator"
	"github.com/woozymasta/peermap/internal/aggregator/mocks"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/daemon"
	"github.com/woozymasta/peermap/internal/geoip"
	"github.com/woozymasta/peermap/internal/models"
)

type fakeGeo struct {
	data  map[string]geoip.Info
	panic map[string]bool
	calls atomic.Int32
}

func (f *fakeGeo) Resolve(_ context.Context, ip string) (geoip.Info, bool) {
	f.calls.Add(1)
	if f.panic[ip] {
		panic("provider exploded")
	}
	info, ok := f.data[ip]
	return info, ok
}

type fakeDNS map[string]string

func (f fakeDNS) Resolve(_ context.Context, ip string) string {
	return f[ip]
}

func newService(t *testing.T, d aggregator.Daemon, geo aggregator.GeoResolver, dns aggregator.DNSResolver) (*aggregator.Service, *cache.Store) {
	t.Helper()

	store := cache.New(time.Minute)
	s := aggregator.New(d, geo, dns, store, aggregator.Options{Interval: time.Hour, Concurrency: 4})
	t.Cleanup(s.Stop)

	return s, store
}

func expectCycle(d *mocks.MockDaemon, peers []daemon.PeerInfo, network daemon.NetworkInfo, mining daemon.MiningInfo) {
	d.EXPECT().PeerInfo(gomock.Any()).Return(peers)
	d.EXPECT().NetworkInfo(gomock.Any()).Return(network)
	d.EXPECT().MiningInfo(gomock.Any()).Return(mining)
}

func TestUpdateDropsLocalPeers(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	expectCycle(d, []daemon.PeerInfo{
		{Addr: "127.0.0.1:8333", SubVer: "/Satoshi:27.0.0/", Version: "70016", StartingHeight: 1},
		{Addr: "8.8.8.8:8333", SubVer: "/Satoshi:27.0.0/", Version: "70016", StartingHeight: 850000},
	}, daemon.NetworkInfo{}, daemon.MiningInfo{})

	geo := &fakeGeo{data: map[string]geoip.Info{"8.8.8.8": {Loc: "37.4,-122.1", Country: "US"}}}
	s, _ := newService(t, d, geo, fakeDNS{"8.8.8.8": "dns.google"})

	require.NoError(t, s.UpdatePeerLocations(context.Background()))

	snap, ok := s.Cached()
	require.True(t, ok)
	require.Len(t, snap.Records, 1)

	rec := snap.Records[0]
	assert.Equal(t, "8.8.8.8", rec.IP)
	assert.Equal(t, "8.8.8.8:8333", rec.RawAddress)
	assert.Equal(t, []float64{37.4, -122.1}, rec.Location)
	assert.Equal(t, "dns.google", rec.DNSHostname)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, "/Satoshi:27.0.0/", rec.UserAgent)
	assert.Equal(t, "70016", rec.ProtocolVersion)
	assert.EqualValues(t, 850000, rec.BlockHeight)
	assert.False(t, snap.LastUpdated.IsZero())
	assert.Equal(t, snap.LastUpdated, s.LastUpdated())
	assert.EqualValues(t, 1, geo.calls.Load(), "local peer must not be geolocated")
}

func TestUpdateWithoutPeersKeepsSnapshot(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	s, store := newService(t, d, &fakeGeo{}, fakeDNS{})

	previous := models.Snapshot{
		Records:     []models.PeerRecord{{IP: "203.0.113.1"}},
		LastUpdated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	store.Set(cache.SnapshotKey, previous)

	expectCycle(d, nil, daemon.NetworkInfo{}, daemon.MiningInfo{})
	assert.ErrorIs(t, s.UpdatePeerLocations(context.Background()), aggregator.ErrNoPeers)

	snap, ok := s.Cached()
	require.True(t, ok)
	assert.Equal(t, previous, snap)
	assert.True(t, s.LastUpdated().IsZero())
}

func TestUpdateIsolatesGeolocationFailures(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	expectCycle(d, []daemon.PeerInfo{
		{Addr: "198.51.100.7:8333"},
		{Addr: "[2001:db8::7]:8333"},
		{Addr: "203.0.113.9:8333"},
	}, daemon.NetworkInfo{}, daemon.MiningInfo{})

	geo := &fakeGeo{
		data: map[string]geoip.Info{
			"203.0.113.9": {Loc: "52.52,13.40", Country: "DE", City: "Berlin", Region: "Berlin", Org: "AS3320 Deutsche Telekom AG"},
		},
		panic: map[string]bool{"2001:db8::7": true},
	}
	s, _ := newService(t, d, geo, fakeDNS{})

	require.NoError(t, s.UpdatePeerLocations(context.Background()))

	snap, ok := s.Cached()
	require.True(t, ok)
	require.Len(t, snap.Records, 3)

	failed := snap.Records[0]
	assert.Equal(t, "198.51.100.7", failed.IP)
	assert.Empty(t, failed.Location)
	assert.Empty(t, failed.Country)
	assert.Empty(t, failed.OrgName)

	panicked := snap.Records[1]
	assert.Equal(t, "2001:db8::7", panicked.IP)
	assert.Empty(t, panicked.Country)

	ok2 := snap.Records[2]
	assert.Equal(t, "DE", ok2.Country)
	assert.Equal(t, "AS3320", ok2.OrgASN)
	assert.Equal(t, "Deutsche Telekom AG", ok2.OrgName)
}

func TestUpdateAppendsLocalAddresses(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	expectCycle(d,
		[]daemon.PeerInfo{{Addr: "203.0.113.9:8333", SubVer: "/peer/", Version: "70015", StartingHeight: 10}},
		daemon.NetworkInfo{
			SubVersion:      "/Satoshi:27.0.0/",
			ProtocolVersion: "70016",
			LocalAddresses: []daemon.LocalAddress{
				{Address: "2001:db8::1", Port: 8333},
				{Address: "not an address", Port: 8333},
				{Address: "192.168.1.10", Port: 8333},
			},
		},
		daemon.MiningInfo{Blocks: 123456},
	)

	s, _ := newService(t, d, &fakeGeo{}, fakeDNS{"2001:db8::1": "node.example.net"})
	require.NoError(t, s.UpdatePeerLocations(context.Background()))

	snap, _ := s.Cached()
	require.Len(t, snap.Records, 3)

	assert.Equal(t, "203.0.113.9", snap.Records[0].IP)

	v6 := snap.Records[1]
	assert.Equal(t, "[2001:db8::1]:8333", v6.RawAddress)
	assert.Equal(t, "node.example.net", v6.DNSHostname)
	assert.Equal(t, "/Satoshi:27.0.0/", v6.UserAgent)
	assert.Equal(t, "70016", v6.ProtocolVersion)
	assert.EqualValues(t, 123456, v6.BlockHeight)

	private := snap.Records[2]
	assert.Equal(t, "192.168.1.10:8333", private.RawAddress, "private node address is kept")
}

func TestUpdatePreservesPeerOrder(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	var peers []daemon.PeerInfo
	for i := 1; i <= 50; i++ {
		peers = append(peers, daemon.PeerInfo{Addr: "198.51.100." + strconv.Itoa(i) + ":8333", StartingHeight: int64(i)})
	}

	d := mocks.NewMockDaemon(ctl)
	expectCycle(d, peers, daemon.NetworkInfo{}, daemon.MiningInfo{})

	s, _ := newService(t, d, &fakeGeo{}, fakeDNS{})
	require.NoError(t, s.UpdatePeerLocations(context.Background()))

	snap, _ := s.Cached()
	require.Len(t, snap.Records, 50)
	for i, rec := range snap.Records {
		assert.EqualValues(t, i+1, rec.BlockHeight)
	}
}

func TestSnapshotRefreshesOnDemandOnce(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	d.EXPECT().PeerInfo(gomock.Any()).DoAndReturn(func(context.Context) []daemon.PeerInfo {
		time.Sleep(50 * time.Millisecond)
		return []daemon.PeerInfo{{Addr: "203.0.113.9:8333"}}
	}).Times(1)
	d.EXPECT().NetworkInfo(gomock.Any()).Return(daemon.NetworkInfo{}).Times(1)
	d.EXPECT().MiningInfo(gomock.Any()).Return(daemon.MiningInfo{}).Times(1)

	s, _ := newService(t, d, &fakeGeo{}, fakeDNS{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Snapshot(context.Background())
			assert.NoError(t, err)
			assert.Len(t, snap.Records, 1)
		}()
	}
	wg.Wait()
}

func TestSnapshotColdWithoutPeers(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	expectCycle(d, nil, daemon.NetworkInfo{}, daemon.MiningInfo{})

	s, _ := newService(t, d, &fakeGeo{}, fakeDNS{})

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, aggregator.ErrNoPeers)
}

func TestStartRefreshesImmediately(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	d.EXPECT().PeerInfo(gomock.Any()).Return([]daemon.PeerInfo{{Addr: "203.0.113.9:8333"}}).MinTimes(1)
	d.EXPECT().NetworkInfo(gomock.Any()).Return(daemon.NetworkInfo{}).MinTimes(1)
	d.EXPECT().MiningInfo(gomock.Any()).Return(daemon.MiningInfo{}).MinTimes(1)

	store := cache.New(time.Minute)
	s := aggregator.New(d, &fakeGeo{}, fakeDNS{}, store, aggregator.Options{Interval: time.Hour, Concurrency: 2})
	s.Start()
	s.Start() // second call is a no-op

	require.Eventually(t, func() bool {
		_, ok := s.Cached()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.Equal(t, time.Hour, s.Interval())
}

func TestUpdateGatewayPanicKeepsSnapshot(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	d := mocks.NewMockDaemon(ctl)
	s, store := newService(t, d, &fakeGeo{}, fakeDNS{})

	previous := models.Snapshot{
		Records:     []models.PeerRecord{{IP: "203.0.113.1", RawAddress: "203.0.113.1:8333"}},
		LastUpdated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	store.Set(cache.SnapshotKey, previous)

	d.EXPECT().PeerInfo(gomock.Any()).Return([]daemon.PeerInfo{{Addr: "8.8.8.8:8333"}})
	d.EXPECT().NetworkInfo(gomock.Any()).DoAndReturn(func(context.Context) daemon.NetworkInfo {
		panic("malformed network info")
	})
	d.EXPECT().MiningInfo(gomock.Any()).Return(daemon.MiningInfo{})

	require.Error(t, s.UpdatePeerLocations(context.Background()))

	snap, ok := s.Cached()
	require.True(t, ok)
	assert.Equal(t, previous, snap)
	assert.True(t, s.LastUpdated().IsZero())
}

func TestUpdateCancelledDoesNotPublish(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := mocks.NewMockDaemon(ctl)
	d.EXPECT().PeerInfo(gomock.Any()).DoAndReturn(func(context.Context) []daemon.PeerInfo {
		cancel()
		return []daemon.PeerInfo{{Addr: "8.8.8.8:8333"}}
	})
	d.EXPECT().NetworkInfo(gomock.Any()).Return(daemon.NetworkInfo{})
	d.EXPECT().MiningInfo(gomock.Any()).Return(daemon.MiningInfo{})

	s, _ := newService(t, d, &fakeGeo{}, fakeDNS{})

	assert.ErrorIs(t, s.UpdatePeerLocations(ctx), context.Canceled)

	_, ok := s.Cached()
	assert.False(t, ok)
	assert.True(t, s.LastUpdated().IsZero())
}

func TestStartRefreshesEveryInterval(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	var cycles atomic.Int32

	d := mocks.NewMockDaemon(ctl)
	d.EXPECT().PeerInfo(gomock.Any()).DoAndReturn(func(context.Context) []daemon.PeerInfo {
		cycles.Add(1)
		return []daemon.PeerInfo{{Addr: "203.0.113.9:8333"}}
	}).MinTimes(2)
	d.EXPECT().NetworkInfo(gomock.Any()).Return(daemon.NetworkInfo{}).MinTimes(2)
	d.EXPECT().MiningInfo(gomock.Any()).Return(daemon.MiningInfo{}).MinTimes(2)

	store := cache.New(time.Minute)
	s := aggregator.New(d, &fakeGeo{}, fakeDNS{}, store, aggregator.Options{Interval: 20 * time.Millisecond, Concurrency: 2})
	s.Start()

	require.Eventually(t, func() bool {
		return cycles.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()

	_, ok := s.Cached()
	assert.True(t, ok)
	assert.Equal(t, 1, s.CacheEntries())
}
