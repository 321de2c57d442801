package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/woozymasta/peermap/internal/vars"
	"golang.org/x/time/rate"
)

// ErrBogon is returned when the provider reports a non-routable address.
var ErrBogon = errors.New("bogon address")

// IPInfo queries an ipinfo.io compatible HTTP API.
type IPInfo struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	token   string
}

// IPInfoOptions configures the provider client.
type IPInfoOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// Rate is the sustained request rate per second, zero disables pacing.
	Rate  float64
	Burst int
}

// NewIPInfo creates a provider client.
func NewIPInfo(opts IPInfoOptions) *IPInfo {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &IPInfo{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
	}
}

// Name implements Lookuper.
func (p *IPInfo) Name() string {
	return "ipinfo"
}

// Lookup issues one GET <base>/<ip> and decodes the JSON object.
func (p *IPInfo) Lookup(ctx context.Context, ip string) (Info, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Info{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return Info{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", vars.UserAgent())
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Info{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("decode response: %w", err)
	}
	if info.Bogon {
		return Info{}, ErrBogon
	}

	return info, nil
}
