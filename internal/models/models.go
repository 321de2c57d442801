// Package models defines the peer-location records produced by the aggregation
// service and the display pairs derived from them.
package models

import (
	"strconv"
	"time"
)

// Field is a display value with a secondary annotation, e.g. city and region.
type Field struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// PeerRecord is one enriched peer or node local address. Records are not
// modified after construction.
type PeerRecord struct {
	RawAddress      string    `json:"rawAddress"`
	IP              string    `json:"ip"`
	DNSHostname     string    `json:"dnsHostname"`
	UserAgent       string    `json:"userAgent"`
	ProtocolVersion string    `json:"protocolVersion"`
	Country         string    `json:"country"`
	Timezone        string    `json:"timezone"`
	City            string    `json:"city"`
	Region          string    `json:"region"`
	OrgName         string    `json:"orgName"`
	OrgASN          string    `json:"orgAsn"`
	Location        []float64 `json:"location"` // [lat, lon], empty when unknown
	BlockHeight     int64     `json:"blockHeight"`
}

// UserAgentField pairs the user agent with the protocol version.
func (p PeerRecord) UserAgentField() Field {
	return Field{Primary: p.UserAgent, Secondary: p.ProtocolVersion}
}

// BlockHeightField pairs the height with its unit.
func (p PeerRecord) BlockHeightField() Field {
	return Field{Primary: strconv.FormatInt(p.BlockHeight, 10), Secondary: "blocks"}
}

// CountryField pairs the country with the timezone.
func (p PeerRecord) CountryField() Field {
	return Field{Primary: p.Country, Secondary: p.Timezone}
}

// CityField pairs the city with the region.
func (p PeerRecord) CityField() Field {
	return Field{Primary: p.City, Secondary: p.Region}
}

// OrgField pairs the organization name with its AS number.
func (p PeerRecord) OrgField() Field {
	return Field{Primary: p.OrgName, Secondary: p.OrgASN}
}

// AddressField pairs the raw address with the DNS hostname.
func (p PeerRecord) AddressField() Field {
	return Field{Primary: p.RawAddress, Secondary: p.DNSHostname}
}

// Snapshot is the published list of records and the time it was built.
// A Snapshot is replaced as a whole, never modified in place.
type Snapshot struct {
	LastUpdated time.Time    `json:"lastUpdated"`
	Records     []PeerRecord `json:"records"`
}
