package daemon

import (
	"bytes"
	"encoding/json"
)

// Text is a daemon field that some forks report as a number and others as a string.
type Text string

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n)
	}

	return nil
}

// String implements fmt.Stringer.
func (t Text) String() string {
	return string(t)
}

// PeerInfo is one entry of getpeerinfo.
type PeerInfo struct {
	Addr           string `json:"addr"`
	SubVer         Text   `json:"subver"`
	Version        Text   `json:"version"`
	StartingHeight int64  `json:"startingheight"`
}

// LocalAddress is an address the node advertises for itself.
type LocalAddress struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Score   int    `json:"score,omitempty"`
}

// NetworkInfo is the subset of getnetworkinfo used for the node's own records.
type NetworkInfo struct {
	SubVersion      Text           `json:"subversion"`
	ProtocolVersion Text           `json:"protocolversion"`
	LocalAddresses  []LocalAddress `json:"localaddresses"`
}

// MiningInfo is the subset of getmininginfo used for the node's block height.
type MiningInfo struct {
	Blocks int64 `json:"blocks"`
}

// legacyInfo is the subset of the pre-0.10 getinfo reply.
type legacyInfo struct {
	Version         Text   `json:"version"`
	ProtocolVersion Text   `json:"protocolversion"`
	IP              string `json:"ip"`
}
