package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chatrelay/pkg/dotdir"
	"github.com/papercomputeco/chatrelay/pkg/logger"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0

	// maxUTF8Bytes is the largest encoded size of one rune.
	maxUTF8Bytes = 4
)

type Configer struct {
	ddm        *dotdir.Manager
	override   string
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{
		ddm:      dotdir.NewManager(),
		override: override,
	}

	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// Without a .chatrelay/ directory targetPath stays empty; LoadConfig
	// returns defaults and SaveConfig creates ~/.chatrelay/.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	return slices.Clone(orderedKeys)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .chatrelay/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always
// receive a fully-populated Config. Fields set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	setIfEmpty(&cfg.Server.Listen, d.Server.Listen)
	setIfEmpty(&cfg.Server.Heartbeat, d.Server.Heartbeat)
	setIfEmpty(&cfg.Backend.Region, d.Backend.Region)

	setIfEmpty(&cfg.Relay.Provider, d.Relay.Provider)
	setIfEmpty(&cfg.Relay.BaseURL, d.Relay.BaseURL)
	setIfEmpty(&cfg.Relay.ReceiveIDType, d.Relay.ReceiveIDType)
	setIfEmpty(&cfg.Relay.Timeout, d.Relay.Timeout)
	if cfg.Relay.FlushThreshold == 0 {
		cfg.Relay.FlushThreshold = d.Relay.FlushThreshold
	}
	if cfg.Relay.MaxMessageBytes == 0 {
		cfg.Relay.MaxMessageBytes = d.Relay.MaxMessageBytes
	}

	setIfEmpty(&cfg.Events.Provider, d.Events.Provider)
	setIfEmpty(&cfg.Events.Topic, d.Events.Topic)
	if cfg.Events.Workers == 0 {
		cfg.Events.Workers = d.Events.Workers
	}
	if cfg.Events.QueueSize == 0 {
		cfg.Events.QueueSize = d.Events.QueueSize
	}

	setIfEmpty(&cfg.Client.GatewayTarget, d.Client.GatewayTarget)
	setIfEmpty(&cfg.Log.Level, d.Log.Level)
}

func setIfEmpty(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// SaveConfig persists the configuration to config.toml, creating
// ~/.chatrelay/ when no directory was resolved.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		dir, err := c.ddm.Ensure(c.override)
		if err != nil {
			return err
		}
		c.targetPath = filepath.Join(dir, configFile)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value,
// validates the result and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// Validate checks cross-field constraints. The flush threshold counts
// runes while the transport limit counts bytes, so a full buffer of
// 4-byte runes must still fit one message.
func (cfg *Config) Validate() error {
	var errs []error

	if cfg.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if d, err := cfg.Server.HeartbeatDuration(); err != nil {
		errs = append(errs, err)
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("server.heartbeat must not be negative, got %s", d))
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Relay.Provider {
	case RelayLark:
		if cfg.Relay.AppID == "" || cfg.Relay.AppSecret == "" {
			errs = append(errs, errors.New("relay.app_id and relay.app_secret are required for the lark relay"))
		}
	case RelayStdout, RelayNone:
	default:
		errs = append(errs, fmt.Errorf("unknown relay.provider %q (supported: %s, %s, %s)", cfg.Relay.Provider, RelayLark, RelayStdout, RelayNone))
	}

	if cfg.Relay.FlushThreshold <= 0 {
		errs = append(errs, fmt.Errorf("relay.flush_threshold must be positive, got %d", cfg.Relay.FlushThreshold))
	}
	if cfg.Relay.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_message_bytes must be positive, got %d", cfg.Relay.MaxMessageBytes))
	}
	if cfg.Relay.FlushThreshold > 0 && cfg.Relay.MaxMessageBytes > 0 &&
		cfg.Relay.FlushThreshold*maxUTF8Bytes > cfg.Relay.MaxMessageBytes {
		errs = append(errs, fmt.Errorf("relay.flush_threshold %d runes may exceed relay.max_message_bytes %d (at most %d runes fit)",
			cfg.Relay.FlushThreshold, cfg.Relay.MaxMessageBytes, cfg.Relay.MaxMessageBytes/maxUTF8Bytes))
	}
	if d, err := cfg.Relay.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("relay.timeout must not be negative, got %s", d))
	}

	switch cfg.Events.Provider {
	case EventsKafka:
		if len(cfg.Events.BrokerList()) == 0 {
			errs = append(errs, errors.New("events.brokers is required for the kafka publisher"))
		}
		if cfg.Events.Topic == "" {
			errs = append(errs, errors.New("events.topic is required for the kafka publisher"))
		}
	case EventsNop:
	default:
		errs = append(errs, fmt.Errorf("unknown events.provider %q (supported: %s, %s)", cfg.Events.Provider, EventsKafka, EventsNop))
	}

	return errors.Join(errs...)
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
