package geoip

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrNotFound is returned when the database has no location for an address.
var ErrNotFound = errors.New("address not found in database")

// Provider wraps a MaxMind City database reader as an offline Lookuper.
type Provider struct {
	db *geoip2.Reader
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Name implements Lookuper.
func (p *Provider) Name() string {
	return "mmdb"
}

// Lookup maps a City record onto the provider response shape.
// The database carries no organization or hostname data.
func (p *Provider) Lookup(_ context.Context, ipStr string) (Info, error) {
	// net.ParseIP does not understand zones
	if i := strings.IndexByte(ipStr, '%'); i >= 0 {
		ipStr = ipStr[:i]
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Info{}, ErrNotFound
	}

	record, err := p.db.City(ip)
	if err != nil {
		return Info{}, err
	}

	if record.Country.IsoCode == "" && record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return Info{}, ErrNotFound
	}

	info := Info{
		IP:       ipStr,
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		Postal:   record.Postal.Code,
		Timezone: record.Location.TimeZone,
		Loc:      formatLoc(record.Location.Latitude, record.Location.Longitude),
	}
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].Names["en"]
	}

	return info, nil
}
