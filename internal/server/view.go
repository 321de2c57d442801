package server

import (
	"html"
	"time"

	"github.com/woozymasta/peermap/internal/models"
)

const secondaryOpen = `<br><span class="text-light">`

// twoLine renders a field as escaped primary text followed by its secondary annotation.
func twoLine(f models.Field) string {
	return html.EscapeString(f.Primary) + secondaryOpen + html.EscapeString(f.Secondary) + "</span>"
}

// NewPeerRecordView formats a record for display.
func NewPeerRecordView(p models.PeerRecord) PeerRecordView {
	ip := html.EscapeString(p.RawAddress)
	if p.DNSHostname != "" {
		ip = twoLine(p.AddressField())
	}

	loc := p.Location
	if loc == nil {
		loc = []float64{}
	}

	return PeerRecordView{
		IP:          ip,
		DNSHostname: p.DNSHostname,
		UserAgent:   twoLine(p.UserAgentField()),
		BlockHeight: twoLine(p.BlockHeightField()),
		Location:    loc,
		Country:     twoLine(p.CountryField()),
		City:        twoLine(p.CityField()),
		Org:         twoLine(p.OrgField()),
		DNS:         p.DNSHostname,
	}
}

func newPeerLocationsResponse(snap models.Snapshot) peerLocationsResponse {
	views := make([]PeerRecordView, 0, len(snap.Records))
	for _, rec := range snap.Records {
		views = append(views, NewPeerRecordView(rec))
	}

	return peerLocationsResponse{
		Locations:   views,
		LastUpdated: timeOrNil(snap.LastUpdated),
	}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	t = t.UTC()
	return &t
}
