package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/logger"
)

// Config represents the persistent chatrelay configuration stored as
// config.toml in the .chatrelay/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Relay   RelayConfig   `toml:"relay"`
	Events  EventsConfig  `toml:"events"`
	Client  ClientConfig  `toml:"client"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig holds gateway server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`

	// Heartbeat is the interval of keep-alive comments on chat streams.
	Heartbeat string `toml:"heartbeat,omitempty"`
}

// HeartbeatDuration parses Heartbeat. An empty value is zero.
func (s ServerConfig) HeartbeatDuration() (time.Duration, error) {
	if s.Heartbeat == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Heartbeat)
	if err != nil {
		return 0, fmt.Errorf("invalid value for server.heartbeat: %w", err)
	}
	return d, nil
}

// BackendConfig holds AWS settings shared by the Bedrock and hosted
// endpoint backends.
type BackendConfig struct {
	Region  string `toml:"region,omitempty"`
	Profile string `toml:"profile,omitempty"`

	// BedrockEndpoint and HostedEndpoint override the service endpoints,
	// e.g. for a VPC endpoint or a local emulator.
	BedrockEndpoint string `toml:"bedrock_endpoint,omitempty"`
	HostedEndpoint  string `toml:"hosted_endpoint,omitempty"`
}

// RelayConfig holds the relay transport and segmentation settings.
type RelayConfig struct {
	// Provider selects the transport: "lark", "stdout" or "none".
	Provider      string `toml:"provider,omitempty"`
	BaseURL       string `toml:"base_url,omitempty"`
	AppID         string `toml:"app_id,omitempty"`
	AppSecret     string `toml:"app_secret,omitempty"`
	ReceiveIDType string `toml:"receive_id_type,omitempty"`

	FlushThreshold  int    `toml:"flush_threshold,omitempty"`
	MaxMessageBytes int    `toml:"max_message_bytes,omitempty"`
	Timeout         string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value is zero.
func (r RelayConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid value for relay.timeout: %w", err)
	}
	return d, nil
}

// EventsConfig holds completion event publishing settings.
type EventsConfig struct {
	// Provider selects the publisher: "kafka" or "nop".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated list of Kafka bootstrap addresses.
	Brokers   string `toml:"brokers,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`
}

// BrokerList splits Brokers on commas, dropping blanks.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ClientConfig holds settings for CLI commands that talk to a running
// gateway. The value is a full URL (scheme + host + port).
type ClientConfig struct {
	GatewayTarget string `toml:"gateway_target,omitempty"`
}

// LogConfig holds process logging settings. Level is one of debug, info,
// warn or error; the --debug flag overrides it.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.heartbeat": {
		get: func(c *Config) string { return c.Server.Heartbeat },
		set: func(c *Config, v string) error {
			if _, err := (ServerConfig{Heartbeat: v}).HeartbeatDuration(); err != nil {
				return err
			}
			c.Server.Heartbeat = v
			return nil
		},
	},

	"backend.region":           stringKey(func(c *Config) *string { return &c.Backend.Region }),
	"backend.profile":          stringKey(func(c *Config) *string { return &c.Backend.Profile }),
	"backend.bedrock_endpoint": stringKey(func(c *Config) *string { return &c.Backend.BedrockEndpoint }),
	"backend.hosted_endpoint":  stringKey(func(c *Config) *string { return &c.Backend.HostedEndpoint }),

	"relay.provider":          stringKey(func(c *Config) *string { return &c.Relay.Provider }),
	"relay.base_url":          stringKey(func(c *Config) *string { return &c.Relay.BaseURL }),
	"relay.app_id":            stringKey(func(c *Config) *string { return &c.Relay.AppID }),
	"relay.app_secret":        stringKey(func(c *Config) *string { return &c.Relay.AppSecret }),
	"relay.receive_id_type":   stringKey(func(c *Config) *string { return &c.Relay.ReceiveIDType }),
	"relay.flush_threshold":   intKey("relay.flush_threshold", func(c *Config) *int { return &c.Relay.FlushThreshold }),
	"relay.max_message_bytes": intKey("relay.max_message_bytes", func(c *Config) *int { return &c.Relay.MaxMessageBytes }),
	"relay.timeout": {
		get: func(c *Config) string { return c.Relay.Timeout },
		set: func(c *Config, v string) error {
			if _, err := (RelayConfig{Timeout: v}).TimeoutDuration(); err != nil {
				return err
			}
			c.Relay.Timeout = v
			return nil
		},
	},

	"events.provider":   stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":    stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":      stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.workers":    uintKey("events.workers", func(c *Config) *uint { return &c.Events.Workers }),
	"events.queue_size": uintKey("events.queue_size", func(c *Config) *uint { return &c.Events.QueueSize }),

	"client.gateway_target": stringKey(func(c *Config) *string { return &c.Client.GatewayTarget }),

	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error {
			if _, err := logger.ParseLevel(v); err != nil {
				return err
			}
			c.Log.Level = v
			return nil
		},
	},
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"server.listen",
	"server.heartbeat",
	"backend.region",
	"backend.profile",
	"backend.bedrock_endpoint",
	"backend.hosted_endpoint",
	"relay.provider",
	"relay.base_url",
	"relay.app_id",
	"relay.app_secret",
	"relay.receive_id_type",
	"relay.flush_threshold",
	"relay.max_message_bytes",
	"relay.timeout",
	"events.provider",
	"events.brokers",
	"events.topic",
	"events.workers",
	"events.queue_size",
	"client.gateway_target",
	"log.level",
}
