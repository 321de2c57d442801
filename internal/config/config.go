// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/peermap/internal/logger"
	"github.com/woozymasta/peermap/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server      Server        `group:"Server Options"`
	Daemon      Daemon        `group:"Daemon RPC Options" namespace:"rpc" env-namespace:"DAEMON_RPC"`
	IPInfo      IPInfo        `group:"Geolocation Provider Options" namespace:"ipinfo" env-namespace:"IPINFO"`
	GeoIP       GeoIP         `group:"GeoIP Fallback Options" namespace:"geoip" env-namespace:"GEOIP"`
	DNS         DNS           `group:"Reverse DNS Options" namespace:"dns" env-namespace:"DNS"`
	Cache       Cache         `group:"Cache Options" namespace:"cache" env-namespace:"CACHE"`
	Aggregation Aggregation   `group:"Aggregation Options" namespace:"aggregation" env-namespace:"AGGREGATION"`
	RateLimit   RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"RATE_LIMIT"`
	Logger      logger.Config `group:"Logger Options" namespace:"log" env-namespace:"LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Host       string `long:"host" env:"HOST" description:"Server listen host" default:""`
	Port       int    `short:"p" long:"port" env:"PORT" description:"Server listen port" default:"3000"`
	StaticDir  string `long:"static-dir" env:"STATIC_DIR" description:"Directory with the built front end, empty disables static serving" default:"dist"`
	DevMode    bool   `long:"dev" env:"DEV_MODE" description:"Redirect front end requests to the Vite dev server"`
	VitePort   int    `long:"vite-port" env:"VITE_DEV_PORT" description:"Vite dev server port used in dev mode" default:"5173"`
	TrustProxy bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Daemon holds coin daemon JSON-RPC configuration.
type Daemon struct {
	// betteralign:ignore

	Host     string        `long:"host" env:"HOST" description:"Daemon RPC host (required)"`
	Port     int           `long:"port" env:"PORT" description:"Daemon RPC port" default:"8332"`
	Username string        `long:"username" env:"USERNAME" description:"Daemon RPC username"`
	Password string        `long:"password" env:"PASSWORD" description:"Daemon RPC password"`
	SSL      bool          `long:"ssl" env:"SSL" description:"Use HTTPS for daemon RPC"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"Daemon RPC timeout" default:"30s"`
}

// IPInfo holds geolocation provider configuration.
type IPInfo struct {
	// betteralign:ignore

	Token   string        `long:"token" env:"TOKEN" description:"Geolocation API token (required)"`
	URL     string        `long:"url" env:"URL" description:"Geolocation API base URL" default:"https://ipinfo.io"`
	Timeout time.Duration `long:"timeout" env:"TIMEOUT" description:"Geolocation request timeout" default:"10s"`
	Rate    float64       `long:"rate" env:"RATE" description:"Max geolocation requests per second, 0 disables pacing" default:"5"`
	Burst   int           `long:"burst" env:"BURST" description:"Geolocation request burst" default:"10"`
}

// GeoIP holds the optional MaxMind City database used when the provider fails.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to City MMDB file, empty disables the fallback"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-City.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"168h"`
}

// DNS holds reverse lookup configuration.
type DNS struct {
	// betteralign:ignore

	ResolvConf string        `long:"resolv-conf" env:"RESOLV_CONF" description:"resolv.conf with nameservers for PTR queries" default:"/etc/resolv.conf"`
	System     bool          `long:"system" env:"SYSTEM" description:"Use the system resolver instead of direct PTR queries"`
	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"PTR query timeout" default:"5s"`
}

// Cache holds snapshot refresh and entry lifetime configuration.
type Cache struct {
	// betteralign:ignore

	RefreshInterval time.Duration `long:"refresh-interval" env:"REFRESH_INTERVAL" description:"Peer locations refresh interval" default:"1h"`
	TTL             time.Duration `long:"ttl" env:"TTL" description:"Cache entry lifetime, defaults to the refresh interval"`
}

// Aggregation holds enrichment tuning.
type Aggregation struct {
	// betteralign:ignore

	Concurrency int `long:"concurrency" env:"CONCURRENCY" description:"Addresses enriched in parallel" default:"16"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"60"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Address returns the listen address.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// EntryTTL returns the cache entry lifetime.
func (c Cache) EntryTTL() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}

	return c.RefreshInterval
}

// Validate reports missing required values and impossible settings.
func (c *Config) Validate() error {
	var missing []string
	if c.Daemon.Host == "" {
		missing = append(missing, "`--rpc-host' (DAEMON_RPC_HOST)")
	}
	if c.IPInfo.Token == "" {
		missing = append(missing, "`--ipinfo-token' (IPINFO_TOKEN)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required configuration not specified: %s", strings.Join(missing, ", "))
	}

	if c.Cache.RefreshInterval <= 0 {
		return errors.New("cache refresh interval must be positive")
	}
	if c.Aggregation.Concurrency < 1 {
		return errors.New("aggregation concurrency must be at least 1")
	}

	return nil
}

// ParseArgs parses args and the environment without printing or exiting.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print(os.Stdout)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return &cfg
}
