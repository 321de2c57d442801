package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

// maxServers limits the nameservers taken from resolv.conf, see resolv.conf(5).
const maxServers = 3

// Client performs PTR lookups against explicit nameservers, or the system
// resolver when none are configured.
type Client struct {
	client  *dns.Client
	system  *net.Resolver
	servers []string
}

// ServersFromResolvConf reads nameserver host:port pairs from a resolv.conf file.
func ServersFromResolvConf(path string) ([]string, error) {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	if len(conf.Servers) == 0 {
		return nil, errors.New("no nameservers configured")
	}

	servers := conf.Servers
	if len(servers) > maxServers {
		servers = servers[:maxServers]
	}

	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}

	return out, nil
}

// NewClient creates a PTR client querying servers in order.
func NewClient(servers []string, timeout time.Duration) *Client {
	return &Client{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		system:  net.DefaultResolver,
		servers: servers,
	}
}

// LookupAddr returns the PTR names of ip without trailing dots.
// NXDOMAIN yields no names and no error.
func (c *Client) LookupAddr(ctx context.Context, ip string) ([]string, error) {
	if i := strings.IndexByte(ip, '%'); i >= 0 {
		ip = ip[:i]
	}

	if len(c.servers) == 0 {
		names, err := c.system.LookupAddr(ctx, ip)
		return trimDots(names), err
	}

	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	var lastErr error
	for _, server := range c.servers {
		r, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			log.Trace().Err(err).Str("server", server).Msg("PTR exchange failed")
			lastErr = err
			continue
		}

		switch r.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("server %s: %s", server, dns.RcodeToString[r.Rcode])
			continue
		}

		var names []string
		for _, rr := range r.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
			}
		}

		return names, nil
	}

	return nil, lastErr
}

func trimDots(names []string) []string {
	for i := range names {
		names[i] = strings.TrimSuffix(names[i], ".")
	}

	return names
}
