package geoip

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/netaddr"
)

// Lookuper is a geolocation source queried on cache miss.
type Lookuper interface {
	Name() string
	Lookup(ctx context.Context, ip string) (Info, error)
}

// Resolver maps IPs to Info through the shared cache and an ordered list of sources.
type Resolver struct {
	store   *cache.Store
	sources []Lookuper
}

// NewResolver creates a resolver trying sources in order on cache miss.
func NewResolver(store *cache.Store, sources ...Lookuper) *Resolver {
	return &Resolver{store: store, sources: sources}
}

// Resolve returns the geolocation of ip. The boolean is false when the address
// is invalid or no source could locate it; callers treat that as unknown.
// Concurrent misses for one IP may query the sources more than once.
func (r *Resolver) Resolve(ctx context.Context, ip string) (Info, bool) {
	if !netaddr.IsValidIP(ip) {
		log.Warn().Str("ip", ip).Msg("Invalid IP address, geolocation skipped")
		return Info{}, false
	}

	key := cache.GeoKey(ip)
	if info, ok := cache.Lookup[Info](r.store, key); ok {
		log.Trace().Str("ip", ip).Msg("Geolocation cache hit")
		return info, true
	}

	for _, src := range r.sources {
		info, err := src.Lookup(ctx, ip)
		if errors.Is(err, ErrBogon) {
			// Non-routable, no source can locate it. Cache the empty answer.
			info = Info{IP: ip, Bogon: true}
			r.store.Set(key, info)
			log.Warn().Str("ip", ip).Str("source", src.Name()).Msg("Bogon address, geolocation skipped")
			return info, true
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("ip", ip).
				Str("source", src.Name()).
				Msg("Geolocation lookup failed")
			continue
		}

		r.store.Set(key, info)
		log.Debug().
			Str("ip", ip).
			Str("source", src.Name()).
			Str("country", info.Country).
			Msg("Geolocation resolved")

		return info, true
	}

	return Info{}, false
}
