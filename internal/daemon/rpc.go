package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRPC wraps errors reported by the daemon in the JSON-RPC error object.
var ErrRPC = errors.New("daemon RPC error")

// Options configures the JSON-RPC transport.
type Options struct {
	Host     string
	Username string
	Password string
	Port     int
	Timeout  time.Duration
	TLS      bool
}

// Client is a JSON-RPC 1.0 client for bitcoind-compatible daemons.
type Client struct {
	client   *http.Client
	url      string
	username string
	password string
	id       atomic.Uint64
}

// request is the JSON-RPC call envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// rpcError is the error object of a failed call.
type rpcError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// response is the JSON-RPC reply envelope.
type response struct {
	Error  *rpcError       `json:"error"`
	Result json.RawMessage `json:"result"`
}

// NewClient creates a client for the daemon described by opts.
// A host containing a path or scheme is used as is, otherwise the port is appended.
func NewClient(opts Options) *Client {
	scheme := "http"
	if opts.TLS {
		scheme = "https"
	}

	host := opts.Host
	switch {
	case strings.Contains(host, "://"):
	case strings.Contains(host, "/"):
		host = scheme + "://" + host
	default:
		host = scheme + "://" + net.JoinHostPort(host, strconv.Itoa(opts.Port))
	}

	return &Client{
		client:   &http.Client{Timeout: opts.Timeout},
		url:      host,
		username: opts.Username,
		password: opts.Password,
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Call invokes a parameterless method and decodes its result into reply.
// A null result leaves reply untouched.
func (c *Client) Call(ctx context.Context, method string, reply any) error {
	body, err := json.Marshal(request{
		JSONRPC: "1.0",
		ID:      c.id.Add(1),
		Method:  method,
		Params:  []any{},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	log.Trace().Str("method", method).Msg("RPC call")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: unauthorized (status %d)", method, resp.StatusCode)
	}

	var envelope response
	if err := json.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
		}
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	if envelope.Error != nil {
		return fmt.Errorf("%w: %s: %s (code %d)", ErrRPC, method, envelope.Error.Message, envelope.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	log.Trace().Str("method", method).Int("bytes", len(data)).Msg("RPC response")

	if reply == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}

	if err := json.Unmarshal(envelope.Result, reply); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}

	return nil
}
