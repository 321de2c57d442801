// Package daemon talks to a bitcoind-compatible node over JSON-RPC and exposes
// the three read-only calls the peer map needs, each isolated from the others.
package daemon

import (
	"context"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=mocks/caller.go -package=mocks . Caller

// Caller invokes a parameterless JSON-RPC method.
type Caller interface {
	Call(ctx context.Context, method string, reply any) error
}

// networkSource is one strategy for obtaining NetworkInfo.
type networkSource struct {
	fetch func(ctx context.Context) (NetworkInfo, error)
	name  string
}

// Gateway never returns errors: failed calls degrade to empty values and are logged.
type Gateway struct {
	caller         Caller
	networkSources []networkSource
	rpcPort        int
}

// NewGateway creates a gateway. rpcPort is used for the address reconstructed
// from the legacy getinfo call.
func NewGateway(caller Caller, rpcPort int) *Gateway {
	g := &Gateway{caller: caller, rpcPort: rpcPort}
	g.networkSources = []networkSource{
		{name: "getnetworkinfo", fetch: g.networkInfo},
		{name: "getinfo", fetch: g.legacyNetworkInfo},
	}

	return g
}

// PeerInfo returns the connected peers, or nothing if the call fails.
func (g *Gateway) PeerInfo(ctx context.Context) []PeerInfo {
	var peers []PeerInfo
	if err := g.caller.Call(ctx, "getpeerinfo", &peers); err != nil {
		log.Error().Err(err).Msg("Failed to fetch peer info")
		return nil
	}

	log.Debug().Int("peers", len(peers)).Msg("Peer info received")
	return peers
}

// NetworkInfo tries each source in order and returns the first success.
// When all fail the result has no local addresses.
func (g *Gateway) NetworkInfo(ctx context.Context) NetworkInfo {
	for _, src := range g.networkSources {
		info, err := src.fetch(ctx)
		if err != nil {
			log.Error().Err(err).Str("source", src.name).Msg("Failed to fetch network info")
			continue
		}

		log.Debug().
			Str("source", src.name).
			Int("local_addresses", len(info.LocalAddresses)).
			Msg("Network info received")
		return info
	}

	return NetworkInfo{LocalAddresses: []LocalAddress{}}
}

// MiningInfo returns mining info, or the zero value if the call fails.
func (g *Gateway) MiningInfo(ctx context.Context) MiningInfo {
	var info MiningInfo
	if err := g.caller.Call(ctx, "getmininginfo", &info); err != nil {
		log.Error().Err(err).Msg("Failed to fetch mining info")
		return MiningInfo{}
	}

	return info
}

func (g *Gateway) networkInfo(ctx context.Context) (NetworkInfo, error) {
	var info NetworkInfo
	err := g.caller.Call(ctx, "getnetworkinfo", &info)
	return info, err
}

// legacyNetworkInfo reshapes getinfo into NetworkInfo with a single local
// address built from the reported IP and the RPC port.
func (g *Gateway) legacyNetworkInfo(ctx context.Context) (NetworkInfo, error) {
	var info legacyInfo
	if err := g.caller.Call(ctx, "getinfo", &info); err != nil {
		return NetworkInfo{}, err
	}

	return NetworkInfo{
		SubVersion:      info.Version,
		ProtocolVersion: info.ProtocolVersion,
		LocalAddresses: []LocalAddress{{
			Address: info.IP,
			Port:    g.rpcPort,
		}},
	}, nil
}
