package gateway

import "time"

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Relay configures the segmenter used by the relay endpoint.
	Relay RelayConfig

	// Heartbeat is the interval of SSE keep-alive comments on chat streams.
	// Zero selects 15 seconds.
	Heartbeat time.Duration

	// NumWorkers and QueueSize size the event publishing pool.
	NumWorkers uint
	QueueSize  uint
}

// RelayConfig holds the segmentation and delivery limits of the relay
// transport.
type RelayConfig struct {
	// FlushThreshold is the rune budget of undelivered text.
	FlushThreshold int

	// MaxMessageBytes is the transport's hard per-message size.
	MaxMessageBytes int

	// SendTimeout bounds each delivery call.
	SendTimeout time.Duration
}
