package rdns

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/peermap/internal/cache"
)

func countingLookup(calls *atomic.Int32, names []string, err error) LookupFunc {
	return func(_ context.Context, _ string) ([]string, error) {
		calls.Add(1)
		return names, err
	}
}

func TestResolveOverride(t *testing.T) {
	var calls atomic.Int32
	r := NewResolver(cache.New(time.Minute), countingLookup(&calls, []string{"other"}, nil))

	assert.Equal(t, "dns.google", r.Resolve(context.Background(), "8.8.8.8"))
	assert.Equal(t, "one.one.one.one", r.Resolve(context.Background(), "1.1.1.1:53"))
	assert.Zero(t, calls.Load())
}

func TestResolveCachesHit(t *testing.T) {
	var calls atomic.Int32
	store := cache.New(time.Minute)
	r := NewResolver(store, countingLookup(&calls, []string{"host.example.net", "alias.example.net"}, nil))

	assert.Equal(t, "host.example.net", r.Resolve(context.Background(), "203.0.113.5"))
	assert.Equal(t, "host.example.net", r.Resolve(context.Background(), "[203.0.113.5]:8333"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestResolveCachesFailureAsEmpty(t *testing.T) {
	var calls atomic.Int32
	store := cache.New(time.Minute)
	r := NewResolver(store, countingLookup(&calls, nil, errors.New("SERVFAIL")))

	assert.Empty(t, r.Resolve(context.Background(), "203.0.113.5"))
	assert.Empty(t, r.Resolve(context.Background(), "203.0.113.5"))
	assert.EqualValues(t, 1, calls.Load())

	host, ok := cache.Lookup[string](store, cache.DNSKey("203.0.113.5"))
	require.True(t, ok)
	assert.Empty(t, host)
}

func TestResolveCachesEmptyResult(t *testing.T) {
	var calls atomic.Int32
	r := NewResolver(cache.New(time.Minute), countingLookup(&calls, nil, nil))

	assert.Empty(t, r.Resolve(context.Background(), "203.0.113.6"))
	assert.Empty(t, r.Resolve(context.Background(), "203.0.113.6"))
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, r.Resolve(context.Background(), ""))
}

// startServer runs a UDP DNS server answering PTR for 203.0.113.5 only.
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	want, err := dns.ReverseAddr("203.0.113.5")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)

		q := req.Question[0]
		if q.Qtype == dns.TypePTR && q.Name == want {
			rr, err := dns.NewRR(q.Name + " 300 IN PTR node.example.net.")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		} else {
			m.SetRcode(req, dns.RcodeNameError)
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestClientLookupAddr(t *testing.T) {
	addr := startServer(t)
	c := NewClient([]string{addr}, 2*time.Second)

	names, err := c.LookupAddr(context.Background(), "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"node.example.net"}, names)

	names, err = c.LookupAddr(context.Background(), "203.0.113.77")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = c.LookupAddr(context.Background(), "not-an-ip")
	assert.Error(t, err)
}

func TestClientFallsThroughDeadServer(t *testing.T) {
	addr := startServer(t)

	// nothing listens on the discard port
	c := NewClient([]string{"127.0.0.1:9", addr}, 300*time.Millisecond)

	names, err := c.LookupAddr(context.Background(), "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"node.example.net"}, names)
}

func TestServersFromResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	conf := "nameserver 192.0.2.53\nnameserver 192.0.2.54\nnameserver 2001:db8::53\nnameserver 192.0.2.55\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))

	servers, err := ServersFromResolvConf(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.53:53", "192.0.2.54:53", "[2001:db8::53]:53"}, servers)

	_, err = ServersFromResolvConf(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
