package geoip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Info is a geolocation record as returned by the provider.
// The zero value means "unknown".
type Info struct {
	IP       string `json:"ip,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"` // "lat,lon"
	Org      string `json:"org,omitempty"` // "AS15169 Google LLC"
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Bogon    bool   `json:"bogon,omitempty"`
}

// Location parses Loc into latitude and longitude.
func (i Info) Location() ([2]float64, bool) {
	var loc [2]float64

	lat, lon, found := strings.Cut(i.Loc, ",")
	if !found {
		return loc, false
	}

	var err error
	if loc[0], err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return loc, false
	}
	if loc[1], err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return loc, false
	}

	return loc, true
}

// Org is an autonomous system split into number and holder name.
type Org struct {
	ASN  string `json:"asn"`
	Name string `json:"name"`
}

var orgPattern = regexp.MustCompile(`^(AS\d+)\s*(.*)$`)

// FormatOrg splits provider organization text "AS<digits> <name>".
// Text without the AS prefix becomes the name with an empty ASN.
func FormatOrg(org string) Org {
	org = strings.TrimSpace(org)
	if org == "" {
		return Org{}
	}

	if m := orgPattern.FindStringSubmatch(org); m != nil {
		return Org{ASN: m[1], Name: m[2]}
	}

	return Org{Name: org}
}

func formatLoc(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
