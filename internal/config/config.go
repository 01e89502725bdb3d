package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/libp2p/go-libp2p/core/peer"

	apperrors "p2p-discovery/go-client/internal/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "P2PNODE"

const (
	ModeMDNS   = "mdns"
	ModeManual = "manual"
)

// Config holds node configuration
type Config struct {
	Mode         string `envconfig:"MODE" default:"mdns" validate:"oneof=mdns manual"`
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:"/ip4/0.0.0.0/tcp/0" validate:"required"`
	PeerAddr     string `envconfig:"PEER_ADDR"`
	RecordPath   string `envconfig:"RECORD_PATH" default:"record.json" validate:"required"`
	IdentityPath string `envconfig:"IDENTITY_PATH"`

	MDNSService       string        `envconfig:"MDNS_SERVICE" default:"_p2p-node._tcp" validate:"required"`
	DiscoveryInterval time.Duration `envconfig:"DISCOVERY_INTERVAL" default:"10s" validate:"gt=0"`
	DiscoveryTimeout  time.Duration `envconfig:"DISCOVERY_TIMEOUT" default:"3s" validate:"gt=0"`
	DiscoveryTTL      time.Duration `envconfig:"DISCOVERY_TTL" default:"60s" validate:"gt=0"`

	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"15s" validate:"gt=0"`
	PingTimeout  time.Duration `envconfig:"PING_TIMEOUT" default:"20s" validate:"gt=0"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s" validate:"gt=0"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text console"`

	// Peer is PeerAddr parsed; nil when no peer address was given.
	Peer *peer.AddrInfo `ignored:"true" validate:"-"`
}

// Discovery reports whether automatic local discovery is enabled.
func (c *Config) Discovery() bool {
	return c.Mode == ModeMDNS
}

var validate = validator.New()

// usageOutput receives the usage text when the command line cannot be parsed.
var usageOutput io.Writer = os.Stderr

// Load builds the configuration from an optional .env file, the environment
// and the command line, in increasing priority. args excludes the program
// name. At most one positional argument is accepted: the peer to dial.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("p2pnode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	mode := fs.String("mode", "", "discovery mode: mdns or manual")
	record := fs.String("record", "", "record file path")
	metricsAddr := fs.String("metrics", "", "status/metrics listen address, empty disables")
	if err := fs.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(usageOutput, "%v\n", err)
		}
		fmt.Fprintln(usageOutput, "Usage: p2pnode [flags] [/ip4/<host>/tcp/<port>/p2p/<peer-id>]")
		fs.SetOutput(usageOutput)
		fs.PrintDefaults()
		return nil, apperrors.WrapConfigurationError(err, "flags", "invalid command line")
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.WrapConfigurationError(err, "env-file", "failed to read dotenv file").
			WithContext("path", *envFile)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.WrapConfigurationError(err, "env", "invalid environment")
	}

	if *mode != "" {
		cfg.Mode = *mode
	}
	if *record != "" {
		cfg.RecordPath = *record
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.PeerAddr = fs.Arg(0)
	default:
		return nil, apperrors.NewConfigurationError("args", "at most one peer address may be given").
			WithContext("args", fs.Args())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and parses PeerAddr into Peer.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.WrapConfigurationError(err, "validate", "invalid configuration")
	}

	c.Peer = nil
	if c.PeerAddr == "" {
		return nil
	}
	info, err := ParsePeerAddr(c.PeerAddr)
	if err != nil {
		return err
	}
	c.Peer = info
	return nil
}

// ParsePeerAddr parses a multiaddr ending in /p2p/<peer-id>.
func ParsePeerAddr(s string) (*peer.AddrInfo, error) {
	info, err := peer.AddrInfoFromString(s)
	if err != nil {
		return nil, apperrors.WrapConfigurationError(err, "peer", "malformed peer address").
			WithContext("addr", s)
	}
	if len(info.Addrs) == 0 {
		return nil, apperrors.NewConfigurationError("peer", "peer address has no transport part").
			WithContext("addr", s)
	}
	return info, nil
}
