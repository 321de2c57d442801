// Package rdns resolves IP addresses to hostnames for display. Failures are
// never reported to callers; an unknown hostname is the empty string.
package rdns

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/peermap/internal/cache"
	"github.com/woozymasta/peermap/internal/netaddr"
)

// Overrides are answered without any lookup.
var Overrides = map[string]string{
	"8.8.8.8": "dns.google",
	"1.1.1.1": "one.one.one.one",
}

// LookupFunc returns the PTR names of an address.
type LookupFunc func(ctx context.Context, ip string) ([]string, error)

// Resolver looks hostnames up through overrides, the shared cache and a LookupFunc.
type Resolver struct {
	store     *cache.Store
	lookup    LookupFunc
	overrides map[string]string
}

// NewResolver creates a resolver backed by store and lookup.
func NewResolver(store *cache.Store, lookup LookupFunc) *Resolver {
	return &Resolver{
		store:     store,
		lookup:    lookup,
		overrides: Overrides,
	}
}

// Resolve returns the first hostname of ip or "" when there is none.
// Empty results are cached so failing lookups are not repeated within the TTL.
func (r *Resolver) Resolve(ctx context.Context, ip string) string {
	ip = netaddr.ExtractIP(ip)
	if ip == "" {
		return ""
	}

	if host, ok := r.overrides[ip]; ok {
		return host
	}

	key := cache.DNSKey(ip)
	if host, ok := cache.Lookup[string](r.store, key); ok {
		log.Trace().Str("ip", ip).Str("hostname", host).Msg("DNS cache hit")
		return host
	}

	names, err := r.lookup(ctx, ip)
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("Reverse DNS lookup failed")
		r.store.Set(key, "")
		return ""
	}

	if len(names) == 0 || names[0] == "" {
		log.Debug().Str("ip", ip).Msg("No reverse DNS record")
		r.store.Set(key, "")
		return ""
	}

	r.store.Set(key, names[0])
	log.Debug().Str("ip", ip).Str("hostname", names[0]).Msg("Reverse DNS resolved")

	return names[0]
}
