// Package config loads relayd settings from defaults, an optional YAML file
// and RELAYD_* environment variables, in that order.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress      = "localhost:50061"
	DefaultPollInterval = 4 * time.Second
	DefaultStopTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
)

// Environment variables read by FromEnv.
const (
	EnvAddress        = "RELAYD_ADDRESS"
	EnvListenAddrs    = "RELAYD_LISTEN_ADDRS"
	EnvIdentityKey    = "RELAYD_IDENTITY_KEY"
	EnvMetricsAddress = "RELAYD_METRICS_ADDRESS"
	EnvPollInterval   = "RELAYD_POLL_INTERVAL"
	EnvStopTimeout    = "RELAYD_STOP_TIMEOUT"
	EnvLogLevel       = "RELAYD_LOG_LEVEL"
)

var (
	ErrInvalidPollInterval = errors.New("poll_interval must be positive")
	ErrInvalidStopTimeout  = errors.New("stop_timeout must be positive")
	ErrNoListenAddrs       = errors.New("listen_addrs must not be empty")
	ErrEmptyAddress        = errors.New("address must not be empty")
)

type Config struct {
	// Address is where the status channel is served.
	Address        string        `yaml:"address"`
	ListenAddrs    []string      `yaml:"listen_addrs"`
	IdentityKey    string        `yaml:"identity_key"`
	MetricsAddress string        `yaml:"metrics_address"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	StopTimeout    time.Duration `yaml:"stop_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Address:      DefaultAddress,
		ListenAddrs:  append([]string(nil), node.DefaultListenAddrs...),
		PollInterval: DefaultPollInterval,
		StopTimeout:  DefaultStopTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// Load applies the YAML file at path (if any) and then the environment on
// top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FromEnv overrides fields from the environment through lookup.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookupNonEmpty(lookup, EnvAddress); ok {
		c.Address = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvListenAddrs); ok {
		var addrs []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				addrs = append(addrs, a)
			}
		}
		c.ListenAddrs = addrs
	}
	if v, ok := lookupNonEmpty(lookup, EnvIdentityKey); ok {
		c.IdentityKey = v
	}
	if v, ok := lookup(EnvMetricsAddress); ok {
		c.MetricsAddress = strings.TrimSpace(v)
	}
	if v, ok := lookupNonEmpty(lookup, EnvPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvPollInterval)
		}
		c.PollInterval = d
	}
	if v, ok := lookupNonEmpty(lookup, EnvStopTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvStopTimeout)
		}
		c.StopTimeout = d
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrEmptyAddress
	}
	if len(c.ListenAddrs) == 0 {
		return ErrNoListenAddrs
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.StopTimeout <= 0 {
		return ErrInvalidStopTimeout
	}
	return nil
}

// Relay returns the node settings.
func (c Config) Relay() node.RelayConfig {
	return node.RelayConfig{
		ListenAddrs:     append([]string(nil), c.ListenAddrs...),
		IdentityKeyFile: c.IdentityKey,
	}
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
