package config

import (
	"github.com/papercomputeco/chatrelay/pkg/relay"
	"github.com/papercomputeco/chatrelay/pkg/relay/lark"
)

const (
	defaultListen    = ":8080"
	defaultHeartbeat = "15s"
	defaultRegion    = "us-east-1"
	defaultLogLevel  = "info"

	defaultRelayProvider = RelayStdout
	defaultReceiveIDType = "chat_id"
	defaultRelayTimeout  = "10s"

	defaultEventsProvider = EventsNop
	defaultEventsTopic    = "chatrelay.completions"
	defaultEventsWorkers  = 3
	defaultEventsQueue    = 256

	defaultGatewayTarget = "http://localhost:8080"
)

// Relay transports.
const (
	RelayLark   = "lark"
	RelayStdout = "stdout"
	RelayNone   = "none"
)

// Event publishers.
const (
	EventsKafka = "kafka"
	EventsNop   = "nop"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:    defaultListen,
			Heartbeat: defaultHeartbeat,
		},
		Backend: BackendConfig{
			Region: defaultRegion,
		},
		Relay: RelayConfig{
			Provider:        defaultRelayProvider,
			BaseURL:         lark.DefaultBaseURL,
			ReceiveIDType:   defaultReceiveIDType,
			FlushThreshold:  relay.DefaultFlushThreshold,
			MaxMessageBytes: relay.DefaultMaxMessageBytes,
			Timeout:         defaultRelayTimeout,
		},
		Events: EventsConfig{
			Provider:  defaultEventsProvider,
			Topic:     defaultEventsTopic,
			Workers:   defaultEventsWorkers,
			QueueSize: defaultEventsQueue,
		},
		Client: ClientConfig{
			GatewayTarget: defaultGatewayTarget,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}
