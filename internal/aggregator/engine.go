package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/daemon"
	"github.com/woozymasta/peermap/internal/geoip"
	"github.com/woozymasta/peermap/internal/models"
	"github.com/woozymasta/peermap/internal/netaddr"
	"golang.org/x/sync/errgroup"
)

var errGatewayFailure = errors.New("aggregation aborted: daemon gateway failure")

// UpdatePeerLocations runs one aggregation cycle and publishes the result.
// On any error the previously published snapshot stays in place.
func (s *Service) UpdatePeerLocations(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation aborted: %v", r)
		}
	}()

	start := time.Now()

	var (
		peers   []daemon.PeerInfo
		network daemon.NetworkInfo
		mining  daemon.MiningInfo
		wg      sync.WaitGroup
		failed  [3]bool
	)

	wg.Add(3)
	go func() { defer wg.Done(); failed[0] = !isolate("peer info", func() { peers = s.daemon.PeerInfo(ctx) }) }()
	go func() { defer wg.Done(); failed[1] = !isolate("network info", func() { network = s.daemon.NetworkInfo(ctx) }) }()
	go func() { defer wg.Done(); failed[2] = !isolate("mining info", func() { mining = s.daemon.MiningInfo(ctx) }) }()
	wg.Wait()

	if failed[0] || failed[1] || failed[2] {
		return errGatewayFailure
	}

	if len(peers) == 0 {
		log.Warn().Msg("No peer information available, keeping previous snapshot")
		return ErrNoPeers
	}

	records := s.buildRecords(ctx, peers, network, mining)

	// resolvers degrade to empty values on cancellation, do not publish those
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now().UTC()
	s.store.Set(cache.SnapshotKey, models.Snapshot{Records: records, LastUpdated: now})
	s.lastUpdated.Store(&now)

	log.Info().
		Int("peers", len(peers)).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Time("updated", now).
		Msg("Peer locations updated and cached")

	return nil
}

// buildRecords enriches peers followed by local addresses, preserving order.
// Dropped and failed items leave no record.
func (s *Service) buildRecords(
	ctx context.Context,
	peers []daemon.PeerInfo,
	network daemon.NetworkInfo,
	mining daemon.MiningInfo,
) []models.PeerRecord {
	slots := make([]*models.PeerRecord, len(peers)+len(network.LocalAddresses))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, peer := range peers {
		g.Go(func() error {
			isolate(peer.Addr, func() { slots[i] = s.peerRecord(ctx, peer) })
			return nil
		})
	}

	for i, addr := range network.LocalAddresses {
		g.Go(func() error {
			isolate(addr.Address, func() { slots[len(peers)+i] = s.localRecord(ctx, addr, network, mining) })
			return nil
		})
	}

	_ = g.Wait()

	records := make([]models.PeerRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	return records
}

// peerRecord builds the record of a connected peer, nil for invalid or local addresses.
func (s *Service) peerRecord(ctx context.Context, peer daemon.PeerInfo) *models.PeerRecord {
	ip := netaddr.ExtractIP(peer.Addr)
	if !netaddr.IsValidIP(ip) || netaddr.IsLocalAddress(ip) {
		log.Warn().Str("addr", peer.Addr).Str("ip", ip).Msg("Invalid or local IP address skipped")
		return nil
	}

	rec := s.enrich(ctx, peer.Addr, ip)
	rec.UserAgent = peer.SubVer.String()
	rec.ProtocolVersion = peer.Version.String()
	rec.BlockHeight = peer.StartingHeight

	return rec
}

// localRecord builds the record of an address the node advertises for itself.
// Private addresses are kept, they describe the node.
func (s *Service) localRecord(
	ctx context.Context,
	addr daemon.LocalAddress,
	network daemon.NetworkInfo,
	mining daemon.MiningInfo,
) *models.PeerRecord {
	ip := netaddr.ExtractIP(addr.Address)
	if !netaddr.IsValidIP(ip) {
		log.Warn().Str("addr", addr.Address).Msg("Invalid local address skipped")
		return nil
	}

	rec := s.enrich(ctx, netaddr.JoinHostPort(ip, addr.Port), ip)
	rec.UserAgent = network.SubVersion.String()
	rec.ProtocolVersion = network.ProtocolVersion.String()
	rec.BlockHeight = mining.Blocks

	return rec
}

// enrich resolves geolocation and reverse DNS for ip concurrently.
func (s *Service) enrich(ctx context.Context, raw, ip string) *models.PeerRecord {
	var (
		info  geoip.Info
		found bool
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		isolate("geolocation "+ip, func() { info, found = s.geo.Resolve(ctx, ip) })
	}()

	var hostname string
	isolate("reverse dns "+ip, func() { hostname = s.dns.Resolve(ctx, ip) })
	wg.Wait()

	if !found {
		info = geoip.Info{}
	}

	org := geoip.FormatOrg(info.Org)
	location := []float64{}
	if loc, ok := info.Location(); ok {
		location = loc[:]
	}

	return &models.PeerRecord{
		RawAddress:  raw,
		IP:          ip,
		DNSHostname: hostname,
		Location:    location,
		Country:     info.Country,
		Timezone:    info.Timezone,
		City:        info.City,
		Region:      info.Region,
		OrgName:     org.Name,
		OrgASN:      org.ASN,
	}
}

// isolate runs fn and converts a panic into a logged failure.
func isolate(what string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("item", what).Interface("panic", r).Msg("Enrichment step failed")
			ok = false
		}
	}()

	fn()
	return true
}
