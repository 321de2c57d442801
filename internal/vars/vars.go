// Package vars holds build-time variables populated via the linker (ldflags).
package vars

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

var (
	// Name of the service, also the User-Agent product token
	Name = "Peermap"

	// Version is the git tag the binary was built from
	Version = "dev"

	// Commit is the full git SHA
	Commit = "unknown"

	// URL of the repository, advertised to the geolocation provider
	URL = "https://github.com/woozymasta/peermap"

	// BuildTime of the binary, zero when built without ldflags
	BuildTime time.Time

	// set by -ldflags "-X", parsed in init
	_buildTime string
)

// BuildInfo is the body of GET /api/version.
type BuildInfo struct {
	BuildTime *time.Time `json:"buildTime"`
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Commit    string     `json:"commit"`
}

func init() {
	if _buildTime == "" {
		return
	}

	if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
		BuildTime = t.UTC()
	} else if sec, err := strconv.ParseInt(_buildTime, 10, 64); err == nil {
		BuildTime = time.Unix(sec, 0).UTC()
	}
}

// Print writes the version banner shown by --version.
func Print(w io.Writer) {
	built := "unknown"
	if !BuildTime.IsZero() {
		built = BuildTime.Format(time.RFC3339)
	}

	_, _ = fmt.Fprintf(w, "%s %s (%s) built %s\n%s\n", Name, Version, CommitShort(), built, URL)
}

// Info returns the build information reported by the HTTP API.
func Info() BuildInfo {
	info := BuildInfo{
		Name:    Name,
		Version: Version,
		Commit:  Commit,
	}
	if !BuildTime.IsZero() {
		t := BuildTime
		info.BuildTime = &t
	}

	return info
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}

// UserAgent returns the User-Agent sent on outbound requests, e.g. "Peermap/v1.2.3 (+https://...)".
func UserAgent() string {
	return Name + "/" + Version + " (+" + URL + ")"
}
