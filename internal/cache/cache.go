// Package cache provides the shared in-memory key-value store with per-entry expiry
// used by the resolvers and the aggregation service.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SnapshotKey is the fixed key of the published peer-location snapshot.
const SnapshotKey = "peer-locations"

// Store is a TTL cache safe for concurrent use. Writers to the same key race
// with last-write-wins semantics.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// New creates a store whose entries expire after ttl. Expired entries are
// invisible immediately and swept every 2*ttl.
func New(ttl time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// GeoKey returns the cache key of a geolocation entry.
func GeoKey(ip string) string {
	return "geo:" + ip
}

// DNSKey returns the cache key of a reverse DNS entry.
func DNSKey(ip string) string {
	return "dns:" + ip
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (any, bool) {
	return s.cache.Get(key)
}

// Set stores value under key with the default TTL.
func (s *Store) Set(key string, value any) {
	s.cache.Set(key, value, gocache.DefaultExpiration)
}

// ItemCount returns the number of entries, including expired ones not yet swept.
func (s *Store) ItemCount() int {
	return s.cache.ItemCount()
}

// TTL returns the default entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Lookup returns the value under key if present and of type T.
func Lookup[T any](s *Store, key string) (T, bool) {
	var zero T

	raw, ok := s.cache.Get(key)
	if !ok {
		return zero, false
	}

	value, ok := raw.(T)
	if !ok {
		return zero, false
	}

	return value, true
}
