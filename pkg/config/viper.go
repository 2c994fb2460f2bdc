package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/chatrelay/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CHATRELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CHATRELAY_SERVER_LISTEN, CHATRELAY_RELAY_APP_SECRET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.heartbeat", d.Server.Heartbeat)

	v.SetDefault("backend.region", d.Backend.Region)
	v.SetDefault("backend.profile", d.Backend.Profile)
	v.SetDefault("backend.bedrock_endpoint", d.Backend.BedrockEndpoint)
	v.SetDefault("backend.hosted_endpoint", d.Backend.HostedEndpoint)

	v.SetDefault("relay.provider", d.Relay.Provider)
	v.SetDefault("relay.base_url", d.Relay.BaseURL)
	v.SetDefault("relay.app_id", d.Relay.AppID)
	v.SetDefault("relay.app_secret", d.Relay.AppSecret)
	v.SetDefault("relay.receive_id_type", d.Relay.ReceiveIDType)
	v.SetDefault("relay.flush_threshold", d.Relay.FlushThreshold)
	v.SetDefault("relay.max_message_bytes", d.Relay.MaxMessageBytes)
	v.SetDefault("relay.timeout", d.Relay.Timeout)

	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.workers", d.Events.Workers)
	v.SetDefault("events.queue_size", d.Events.QueueSize)

	v.SetDefault("client.gateway_target", d.Client.GatewayTarget)

	v.SetDefault("log.level", d.Log.Level)
}

// FromViper resolves the effective Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:    v.GetString("server.listen"),
			Heartbeat: v.GetString("server.heartbeat"),
		},
		Backend: BackendConfig{
			Region:          v.GetString("backend.region"),
			Profile:         v.GetString("backend.profile"),
			BedrockEndpoint: v.GetString("backend.bedrock_endpoint"),
			HostedEndpoint:  v.GetString("backend.hosted_endpoint"),
		},
		Relay: RelayConfig{
			Provider:        v.GetString("relay.provider"),
			BaseURL:         v.GetString("relay.base_url"),
			AppID:           v.GetString("relay.app_id"),
			AppSecret:       v.GetString("relay.app_secret"),
			ReceiveIDType:   v.GetString("relay.receive_id_type"),
			FlushThreshold:  v.GetInt("relay.flush_threshold"),
			MaxMessageBytes: v.GetInt("relay.max_message_bytes"),
			Timeout:         v.GetString("relay.timeout"),
		},
		Events: EventsConfig{
			Provider:  v.GetString("events.provider"),
			Brokers:   v.GetString("events.brokers"),
			Topic:     v.GetString("events.topic"),
			Workers:   v.GetUint("events.workers"),
			QueueSize: v.GetUint("events.queue_size"),
		},
		Client: ClientConfig{
			GatewayTarget: v.GetString("client.gateway_target"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
